package http

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"careboard/pkg"
)

//go:embed templates/*.html
var templateFS embed.FS

// renderer adapts html/template to echo.Renderer.
type renderer struct {
	templates *template.Template
}

func newRenderer() (*renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"isDoctor": func(m pkg.ChatMessage) bool { return m.Sender == pkg.SenderDoctor },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &renderer{templates: tmpl}, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
