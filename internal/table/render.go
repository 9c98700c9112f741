package table

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var tmpl = template.Must(template.New("table").
	Funcs(template.FuncMap{"inc": func(n int) int { return n + 1 }}).
	ParseFS(templateFS, "templates/*.html"))

// Render writes v as HTML.
func Render(w io.Writer, v View) error {
	if err := tmpl.ExecuteTemplate(w, "table", v); err != nil {
		return fmt.Errorf("render table %s: %w", v.Name, err)
	}
	return nil
}

// HTML renders v for embedding into a page template.
func HTML(v View) (template.HTML, error) {
	var buf bytes.Buffer
	if err := Render(&buf, v); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
