package web

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"lifeweeks/internal/grid"
	appLog "lifeweeks/internal/log"
)

// The grid is painted server side, so the page is ready as soon as it
// loads. Snapshots wait for the data-ready attribute.
var gridPage = template.Must(template.New("grid").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Life in weeks</title>
<style>
body { margin: 0; font-family: system-ui, sans-serif; background: #fff; }
header { padding: 8px 16px; color: #555; font-size: 14px; }
#grid svg { display: block; margin: 0 auto; }
#grid rect[data-key]:hover { stroke: #000; stroke-width: 1; }
</style>
</head>
<body>
<header>{{.WeeksLived}} of {{.Total}} weeks lived</header>
<main id="grid" data-ready="true">{{.SVG}}</main>
</body>
</html>
`))

type gridPageData struct {
	WeeksLived int
	Total      int
	SVG        template.HTML
}

func (s *Server) renderSVG(r *http.Request) (*grid.Grid, []byte, error) {
	g, err := s.svc.Render(r.Context(), renderOptions(r))
	if err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if err := grid.WriteSVG(&buf, g); err != nil {
		return nil, nil, err
	}
	return g, buf.Bytes(), nil
}

// handleGridPage serves the HTML page with the grid inlined.
func (s *Server) handleGridPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	g, svg, err := s.renderSVG(r)
	if err != nil {
		appLog.Error("grid page: render failed", err)
		http.Error(w, "failed to render grid", http.StatusInternalServerError)
		return
	}
	doc := string(svg)
	if i := strings.Index(doc, "<svg"); i > 0 {
		doc = doc[i:]
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = gridPage.Execute(w, gridPageData{
		WeeksLived: g.WeeksLived,
		Total:      g.Years * grid.WeeksPerYear,
		SVG:        template.HTML(doc),
	})
	if err != nil {
		appLog.Error("grid page: template failed", err)
	}
}

// handleGridSVG serves the grid as a standalone SVG document.
func (s *Server) handleGridSVG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	_, svg, err := s.renderSVG(r)
	if err != nil {
		appLog.Error("grid svg: render failed", err)
		http.Error(w, "failed to render grid", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}
