package template

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
)

// layoutHTML is the base email layout for direct-content sends. Template
// based sends skip local rendering entirely; the provider renders remotely.
const layoutHTML = `<!DOCTYPE html>
<html>
  <body style="margin:0;padding:0;background:#f4f4f7;font-family:Helvetica,Arial,sans-serif;">
    <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
      <tr>
        <td align="center" style="padding:24px;">
          <table role="presentation" width="560" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;">
            <tr>
              <td style="padding:32px;">
                <h1 style="margin:0 0 16px;font-size:20px;color:#1a1a2e;">{{.Title}}</h1>
                <div style="font-size:15px;line-height:1.6;color:#3c3c4a;">{{.Content}}</div>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>`

// Engine wraps notification content in the base HTML layout and produces a
// plain-text fallback.
type Engine struct {
	layout *template.Template
}

// NewEngine creates a new template engine with the built-in layout.
func NewEngine() (*Engine, error) {
	tmpl, err := template.New("layout").Parse(layoutHTML)
	if err != nil {
		return nil, fmt.Errorf("parsing email layout: %w", err)
	}
	return &Engine{layout: tmpl}, nil
}

// Render produces the HTML body and a plain-text fallback for a
// direct-content email.
func (e *Engine) Render(title, content string) (html, text string, err error) {
	var buf bytes.Buffer
	data := struct {
		Title   string
		Content template.HTML
	}{Title: title, Content: template.HTML(content)}

	if err := e.layout.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("executing email layout: %w", err)
	}
	html = buf.String()
	text = stripHTML(html)
	return html, text, nil
}

// stripHTML removes HTML tags and collapses whitespace to produce a plain-text version.
func stripHTML(s string) string {
	// Remove HTML tags
	re := regexp.MustCompile(`<[^>]*>`)
	text := re.ReplaceAllString(s, "")

	// Decode common HTML entities
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = strings.ReplaceAll(text, "&#39;", "'")
	text = strings.ReplaceAll(text, "&nbsp;", " ")

	// Collapse whitespace
	wsRe := regexp.MustCompile(`\s+`)
	text = wsRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
