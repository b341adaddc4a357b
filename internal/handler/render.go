package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/disneydex/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// 画面テンプレート名。
const (
	pageList   = "list"
	pageDetail = "detail"
	pageError  = "error"
)

// pageTemplates は画面ごとにlayoutと組み合わせたテンプレート。
// テンプレートはバイナリに埋め込まれるため、パース失敗は起動時にpanicさせる。
var pageTemplates = parsePageTemplates(pageList, pageDetail, pageError)

func parsePageTemplates(names ...string) map[string]*template.Template {
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		pages[name] = template.Must(template.ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		))
	}
	return pages
}

// renderPage は画面テンプレートを描画する。
// 描画はバッファに対して行い、失敗した場合は途中まで書き込まずに500を返す。
func renderPage(w http.ResponseWriter, logger *slog.Logger, status int, page string, data any) {
	tmpl, ok := pageTemplates[page]
	if !ok {
		logger.Error("unknown page template", slog.String("page", page))
		middleware.WriteInternalServerError(w)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
