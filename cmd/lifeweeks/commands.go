package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"lifeweeks/internal/app"
	"lifeweeks/internal/capture"
	"lifeweeks/internal/config"
	"lifeweeks/internal/ics"
	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/week"
	"lifeweeks/internal/web"
)

func openService(c *cli.Context) (*config.Config, *app.Service, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, svc, nil
}

// parseWhen accepts a date (2022-06-15) or a week key (2022-W24).
func parseWhen(s string) (time.Time, error) {
	if k := week.Key(s); k.Valid() {
		return week.MustApproxDate(k), nil
	}
	if t, ok := week.ParseDate(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor YYYY-Www", s)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the grid and API, run auto-fill and watch the notes folder.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, svc, err := openService(c)
			if err != nil {
				return err
			}
			if c.IsSet("listen") {
				cfg.Listen = c.String("listen")
			}
			appLog.Info("effective config",
				"listen", cfg.Listen,
				"settings_path", cfg.SettingsPath,
				"notes_root", cfg.NotesRoot,
				"autofill_cron", cfg.AutoFillCron,
				"basic_auth", cfg.BasicAuth != nil,
			)

			ctx, cancel := signalContext(c.Context)
			defer cancel()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return web.NewServer(cfg, svc).ListenAndServe(gctx)
			})
			g.Go(func() error {
				return svc.AutoFill().Run(gctx, cfg.AutoFillCron)
			})
			g.Go(func() error {
				if err := svc.Notes().Watch(gctx, svc.NotesDir()); err != nil {
					// The grid works without the watcher.
					appLog.Error("notes watcher stopped", err)
				}
				return nil
			})
			err = g.Wait()
			appLog.Info("lifeweeks exiting")
			return err
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a life event and write its note.",
		ArgsUsage: "DESCRIPTION",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Value: "Major Life", Usage: "event category"},
			&cli.StringFlag{Name: "color", Usage: "color for a new custom category"},
			&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Required: true, Usage: "date or week key"},
			&cli.StringFlag{Name: "end", Aliases: []string{"e"}, Usage: "date or week key; makes a range"},
		},
		Action: func(c *cli.Context) error {
			desc := strings.Join(c.Args().Slice(), " ")
			if desc == "" {
				return errors.New("description is required")
			}
			_, svc, err := openService(c)
			if err != nil {
				return err
			}
			in := app.NewEvent{Category: c.String("category"), Color: c.String("color"), Description: desc}
			if in.Start, err = parseWhen(c.String("start")); err != nil {
				return err
			}
			if c.IsSet("end") {
				if in.End, err = parseWhen(c.String("end")); err != nil {
					return err
				}
			}
			res, err := svc.AddEvent(c.Context, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "added %s event to %s", res.Event.Kind, res.Category)
			if res.NotePath != "" {
				fmt.Fprintf(c.App.Writer, " (note %s)", res.NotePath)
			}
			fmt.Fprintln(c.App.Writer)
			return nil
		},
	}
}

func noteCommand() *cli.Command {
	return &cli.Command{
		Name:  "note",
		Usage: "Create the current week's note if it does not exist.",
		Action: func(c *cli.Context) error {
			_, svc, err := openService(c)
			if err != nil {
				return err
			}
			p, created, err := svc.CurrentWeekNote(c.Context)
			if err != nil {
				return err
			}
			state := "exists"
			if created {
				state = "created"
			}
			fmt.Fprintf(c.App.Writer, "%s (%s)\n", p, state)
			return nil
		},
	}
}

func fillCommand() *cli.Command {
	return &cli.Command{
		Name:  "fill",
		Usage: "Run the auto-fill check once, or toggle one future week with --week.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "week", Aliases: []string{"w"}, Usage: "week key to toggle"},
		},
		Action: func(c *cli.Context) error {
			_, svc, err := openService(c)
			if err != nil {
				return err
			}
			if c.IsSet("week") {
				k := week.Key(c.String("week"))
				on, err := svc.ToggleFilled(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%s filled=%v\n", k, on)
				return nil
			}
			added, err := svc.AutoFill().CheckAndMaybeFill(time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "auto-fill: added=%v\n", added)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-ics",
		Usage: "Write every event as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (stdout when empty)"},
		},
		Action: func(c *cli.Context) error {
			_, svc, err := openService(c)
			if err != nil {
				return err
			}
			out := c.String("out")
			if out == "" {
				return svc.ExportICS(c.App.Writer)
			}
			var b strings.Builder
			if err := svc.ExportICS(&b); err != nil {
				return err
			}
			return config.WriteFileAtomic(out, []byte(b.String()), 0o644)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import-ics",
		Usage:     "Import events from an .ics file or feed URL.",
		ArgsUsage: "FILE|URL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "category for entries without CATEGORIES"},
			&cli.StringFlag{Name: "cache-dir", Value: "./data/ics-cache", Usage: "feed cache directory"},
		},
		Action: func(c *cli.Context) error {
			src := c.Args().First()
			if src == "" {
				return errors.New("an .ics file or URL is required")
			}
			_, svc, err := openService(c)
			if err != nil {
				return err
			}

			var body []byte
			if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
				res, err := ics.NewFetcher(c.String("cache-dir")).Fetch(c.Context, src)
				if err != nil {
					return err
				}
				body = res.Body
			} else {
				f, err := os.Open(src)
				if err != nil {
					return err
				}
				body, err = io.ReadAll(f)
				f.Close()
				if err != nil {
					return err
				}
			}

			from, to := svc.ImportWindow()
			items, err := ics.Import(src, body, ics.ImportOptions{
				DefaultCategory: c.String("category"),
				From:            from,
				To:              to,
			})
			if err != nil {
				return err
			}
			added, skipped, err := svc.ImportItems(c.Context, items)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "imported %d events, skipped %d\n", added, skipped)
			return nil
		},
	}
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Render the grid in headless Chromium and save a PNG.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "PNG path (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, svc, err := openService(c)
			if err != nil {
				return err
			}

			// A private loopback server without auth, torn down afterwards.
			local := *cfg
			local.BasicAuth = nil
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return err
			}
			srv := &http.Server{Handler: web.NewServer(&local, svc).Handler(), ReadHeaderTimeout: 10 * time.Second}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					appLog.Error("snapshot server failed", err)
				}
			}()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}()

			url := fmt.Sprintf("http://%s/grid?fit=1&width=%d&height=%d",
				ln.Addr().String(), cfg.Capture.Width, cfg.Capture.Height)
			opts := capture.OptionsFromConfig(cfg, url)
			if c.IsSet("out") {
				opts.OutputPath = c.String("out")
			}

			ctx, cancel := signalContext(c.Context)
			defer cancel()
			return capture.GridPNG(ctx, opts)
		},
	}
}

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:  "hash-password",
		Usage: "Hash a password for basic_auth (Argon2id).",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "basic auth user"},
			&cli.BoolFlag{Name: "save", Usage: "store the credentials in the config file"},
		},
		Action: func(c *cli.Context) error {
			password, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := readPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			hash, err := web.HashPassword(password)
			if err != nil {
				return err
			}

			if !c.Bool("save") {
				fmt.Fprintln(c.App.Writer, hash)
				return nil
			}
			user := c.String("username")
			if user == "" {
				return errors.New("--username is required with --save")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			cfg.BasicAuth = &config.BasicAuthConfig{Username: user, PasswordHash: hash}
			if err := cfg.Save(c.String("config")); err != nil {
				return err
			}
			appLog.Info("basic auth credentials saved", "user", user, "config_path", c.String("config"))
			return nil
		},
	}
}

var stdin = bufio.NewReader(os.Stdin)

// readPassword reads without echo from a terminal, or a plain line from a
// pipe.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(b), err
	}
	line, err := stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
