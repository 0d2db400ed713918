package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"lifeweeks/internal/app"
	"lifeweeks/internal/config"
	"lifeweeks/internal/events"
	"lifeweeks/internal/ics"
	appLog "lifeweeks/internal/log"
	"lifeweeks/internal/settings"
	"lifeweeks/internal/week"
)

// maxBody caps JSON and calendar uploads.
const maxBody = 4 << 20

// Server exposes the life grid and its editing operations over HTTP.
type Server struct {
	cfg *config.Config
	svc *app.Service
	mux *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *app.Service) *Server {
	s := &Server{
		cfg: cfg,
		svc: svc,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		appLog.Info("HTTP server stopped")
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/{$}", s.handleIndex)
	s.mux.HandleFunc("/grid", s.handleGridPage)
	s.mux.HandleFunc("/grid.svg", s.handleGridSVG)

	s.mux.HandleFunc("/api/grid", s.handleGrid)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/weeks/{key}", s.handleWeek)
	s.mux.HandleFunc("/api/categories", s.handleCategories)
	s.mux.HandleFunc("/api/filled", s.handleFilled)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/notes/current", s.handleCurrentNote)
	s.mux.HandleFunc("/api/export.ics", s.handleExport)
	s.mux.HandleFunc("/api/import", s.handleImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/grid", http.StatusFound)
}

// renderOptions reads ?zoom=1.5 or ?fit=1&width=..&height=.. .
func renderOptions(r *http.Request) app.RenderOptions {
	q := r.URL.Query()
	return app.RenderOptions{
		Zoom:   parseFloatDefault(q.Get("zoom"), 0),
		Fit:    q.Get("fit") == "1" || q.Get("fit") == "true",
		Width:  parseFloatDefault(q.Get("width"), 0),
		Height: parseFloatDefault(q.Get("height"), 0),
	}
}

// handleGrid returns the fully styled grid as JSON.
//
// GET /api/grid?zoom=1.5
// GET /api/grid?fit=1&width=1400&height=900
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	g, err := s.svc.Render(r.Context(), renderOptions(r))
	if err != nil {
		appLog.Error("api grid: render failed", err)
		writeError(w, http.StatusInternalServerError, "failed to render grid")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// eventView is the JSON shape of one stored event.
type eventView struct {
	Kind        string   `json:"kind"`
	Start       week.Key `json:"start"`
	End         week.Key `json:"end,omitempty"`
	Description string   `json:"description"`
	// Encoded identifies the event for DELETE.
	Encoded string `json:"encoded"`
}

type categoryView struct {
	Name    string      `json:"name"`
	Color   string      `json:"color"`
	Builtin bool        `json:"builtin"`
	Events  []eventView `json:"events"`
}

func toEventView(e events.Event) eventView {
	return eventView{
		Kind:        e.Kind.String(),
		Start:       e.Start,
		End:         e.End,
		Description: e.Description,
		Encoded:     events.Encode(e),
	}
}

func toCategoryViews(cats []events.Category) []categoryView {
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		cv := categoryView{Name: c.Name, Color: c.Color, Builtin: c.Builtin, Events: make([]eventView, 0, len(c.Events))}
		for _, e := range c.Events {
			cv.Events = append(cv.Events, toEventView(e))
		}
		out = append(out, cv)
	}
	return out
}

// addEventRequest accepts dates ("2022-06-15") or week keys ("2022-W24")
// for start and end.
type addEventRequest struct {
	Category    string `json:"category"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type addEventResponse struct {
	Category string    `json:"category"`
	Event    eventView `json:"event"`
	NotePath string    `json:"notePath,omitempty"`
}

// handleEvents lists, adds and removes events.
//
// GET    /api/events
// POST   /api/events                 {category, color, description, start, end}
// DELETE /api/events?category=..&event=<encoded>
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toCategoryViews(s.svc.Store().Categories()))

	case http.MethodPost:
		var req addEventRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := s.addEvent(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, addEventResponse{
			Category: res.Category,
			Event:    toEventView(res.Event),
			NotePath: res.NotePath,
		})

	case http.MethodDelete:
		q := r.URL.Query()
		e, err := events.Decode(q.Get("event"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ok, err := s.svc.RemoveEvent(q.Get("category"), e)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (s *Server) addEvent(ctx context.Context, req addEventRequest) (app.AddResult, error) {
	if k := week.Key(req.Start); k.Valid() {
		end := week.Key(req.End)
		if req.End != "" && !end.Valid() {
			return app.AddResult{}, week.ErrInvalidKey
		}
		return s.svc.AddEventForWeeks(ctx, req.Category, req.Color, req.Description, k, end)
	}
	start, ok := week.ParseDate(req.Start)
	if !ok {
		return app.AddResult{}, errBadDate
	}
	in := app.NewEvent{
		Category:    req.Category,
		Color:       req.Color,
		Description: req.Description,
		Start:       start,
	}
	if req.End != "" {
		end, ok := week.ParseDate(req.End)
		if !ok {
			return app.AddResult{}, errBadDate
		}
		in.End = end
	}
	return s.svc.AddEvent(ctx, in)
}

// handleWeek reads or clears one week.
//
// GET    /api/weeks/2022-W24
// DELETE /api/weeks/2022-W24   removes every event touching the week
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	k := week.Key(r.PathValue("key"))
	if !k.Valid() {
		writeError(w, http.StatusBadRequest, week.ErrInvalidKey.Error())
		return
	}
	switch r.Method {
	case http.MethodGet:
		info, err := s.svc.Week(r.Context(), k)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, info)
	case http.MethodDelete:
		n, err := s.svc.DeleteWeeks([]week.Key{k})
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": n})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

type categoryRequest struct {
	Name    string `json:"name"`
	NewName string `json:"newName,omitempty"`
	Color   string `json:"color,omitempty"`
}

// handleCategories manages custom categories.
//
// POST   /api/categories   {name, color}
// PATCH  /api/categories   {name, newName?, color?}
// DELETE /api/categories?name=..
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	st := s.svc.Store()
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toCategoryViews(st.Categories()))
		return

	case http.MethodPost:
		var req categoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := st.AddCategory(req.Name, req.Color); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		appLog.Info("category added", "name", req.Name)

	case http.MethodPatch:
		var req categoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		name := req.Name
		if req.NewName != "" && req.NewName != req.Name {
			if err := st.RenameCategory(req.Name, req.NewName); err != nil {
				writeError(w, statusFor(err), err.Error())
				return
			}
			appLog.Info("category renamed", "from", req.Name, "to", req.NewName)
			name = req.NewName
		}
		if req.Color != "" {
			if err := st.SetCategoryColor(name, req.Color); err != nil {
				writeError(w, statusFor(err), err.Error())
				return
			}
		}

	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		if err := st.DeleteCategory(name); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		appLog.Info("category deleted", "name", name)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryViews(st.Categories()))
}

// handleFilled toggles a future week in manual fill mode.
//
// POST /api/filled {"week": "2030-W10"}
func (s *Server) handleFilled(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req struct {
		Week week.Key `json:"week"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	filled, err := s.svc.ToggleFilled(req.Week)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"week": req.Week, "filled": filled})
}

// handleCurrentNote creates the current week's note when missing.
//
// POST /api/notes/current
func (s *Server) handleCurrentNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	p, created, err := s.svc.CurrentWeekNote(r.Context())
	if err != nil {
		appLog.Error("api notes: create current week note failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create note")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": p, "created": created})
}

// handleExport streams every event as an .ics file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="lifeweeks.ics"`)
	if err := s.svc.ExportICS(w); err != nil {
		appLog.Error("api export: write failed", err)
	}
}

// handleImport reads an iCalendar body and adds its events.
//
// POST /api/import?category=Imported   (body: text/calendar)
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	from, to := s.svc.ImportWindow()
	items, err := ics.Import("upload", body, ics.ImportOptions{
		DefaultCategory: r.URL.Query().Get("category"),
		From:            from,
		To:              to,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	added, skipped, err := s.svc.ImportItems(r.Context(), items)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added, "skipped": skipped})
}

var errBadDate = errors.New("dates must be YYYY-MM-DD or YYYY-Www")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, events.ErrUnknownCategory):
		return http.StatusNotFound
	case errors.Is(err, events.ErrDuplicateCategory),
		errors.Is(err, events.ErrBuiltinCategory),
		errors.Is(err, app.ErrManualFillDisabled):
		return http.StatusConflict
	case errors.Is(err, events.ErrEmptyDescription),
		errors.Is(err, events.ErrColonInDescription),
		errors.Is(err, events.ErrEmptyCategory),
		errors.Is(err, events.ErrMalformed),
		errors.Is(err, week.ErrInvalidKey),
		errors.Is(err, settings.ErrInvalidBirthday),
		errors.Is(err, settings.ErrInvalidLifespan),
		errors.Is(err, settings.ErrInvalidWeekday),
		errors.Is(err, app.ErrNotFutureWeek),
		errors.Is(err, errBadDate):
		return http.StatusBadRequest
	}
	appLog.Error("request failed", err)
	return http.StatusInternalServerError
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
