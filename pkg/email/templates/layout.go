// Package templates holds the HTML shell shared by every outgoing email.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Layout wraps an already rendered HTML body in the mail document. The title
// is escaped; the body is trusted and written as is.
func Layout(title, brand string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="es"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString("<title>")
		b.WriteString(templ.EscapeString(title))
		b.WriteString("</title></head>")
		b.WriteString(`<body style="margin:0;padding:24px;background:#f6f1eb;font-family:Arial,sans-serif;color:#3b2a1e">`)
		b.WriteString(`<div style="max-width:600px;margin:0 auto;background:#ffffff;padding:24px;border-radius:8px">`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		var f strings.Builder
		f.WriteString("</div>")
		if brand != "" {
			f.WriteString(`<p style="text-align:center;font-size:12px;color:#8a7667">`)
			f.WriteString(templ.EscapeString(brand))
			f.WriteString("</p>")
		}
		f.WriteString("</body></html>")
		_, err := io.WriteString(w, f.String())
		return err
	})
}

// Document renders body inside Layout.
func Document(ctx context.Context, title, brand, body string) (string, error) {
	return Render(ctx, Layout(title, brand, templ.Raw(body)))
}

// IsDocument reports whether html already carries its own document shell.
func IsDocument(html string) bool {
	head := strings.ToLower(strings.TrimSpace(html))
	if len(head) > 64 {
		head = head[:64]
	}
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}
