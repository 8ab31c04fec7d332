package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// LoadingMessage fills list panels before the first load finishes.
const LoadingMessage = "Loading..."

// Page is the data for the full dashboard document.
type Page struct {
	Title    string
	Panels   map[string]template.HTML
	Progress Progress
}

// Renderer turns views into markup. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New 解析内嵌模板
func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) execute(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// NowPlaying 渲染正在播放面板
func (r *Renderer) NowPlaying(v NowPlaying) (template.HTML, error) {
	return r.execute("now_playing", v)
}

// List 渲染列表面板
func (r *Renderer) List(v ListPanel) (template.HTML, error) {
	return r.execute("list", v)
}

// Terms 渲染时间窗口按钮组
func (r *Renderer) Terms(v TermGroup) (template.HTML, error) {
	return r.execute("terms", v)
}

// Status 渲染连接状态
func (r *Renderer) Status(state string) (template.HTML, error) {
	return r.execute("status", state)
}

// Page writes the whole document.
func (r *Renderer) Page(w io.Writer, p Page) error {
	if err := r.tmpl.ExecuteTemplate(w, "page", p); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
