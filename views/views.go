// Package views renders the application's HTML. Every page and partial is a
// templ.Component backed by an embedded html/template file, so handlers can
// hand them to handler.Templ, handler.TemplPartial and the Datastar SSE
// helpers like any other component.
package views

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/fittrack/svc/exercise"
	"github.com/dmitrymomot/fittrack/svc/units"
)

//go:embed templates
var templatesFS embed.FS

// Shared templates every page set is built on.
var shared = []string{"templates/layout.html", "templates/partials.html"}

var pages = mustParsePages()

func mustParsePages() map[string]*template.Template {
	base := template.Must(template.New("").Funcs(funcs).ParseFS(templatesFS, shared...))

	files, err := fs.Glob(templatesFS, "templates/pages/*.html")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*template.Template, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		out[name] = template.Must(template.Must(base.Clone()).ParseFS(templatesFS, f))
	}
	return out
}

// page renders a full document: the layout around the page's "content".
func page(name string, data any) templ.Component {
	return block(name, "layout", data)
}

// block renders one named template from a page set. Partials used for
// Datastar patches are blocks of the page that owns them.
func block(pageName, tmpl string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		t, ok := pages[pageName]
		if !ok {
			return fmt.Errorf("views: unknown page %q", pageName)
		}
		return t.ExecuteTemplate(w, tmpl, data)
	})
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"isoDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.DateOnly)
	},
	"weight": formatWeight,
	"reps": func(reps []int) string {
		parts := make([]string, len(reps))
		for i, r := range reps {
			parts[i] = strconv.Itoa(r)
		}
		return strings.Join(parts, ", ")
	},
	"units": units.All,
	"signals": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"add": func(a, b int) int { return a + b },
	"sortHeader": func(q exercise.Query, column, label string) sortHeader {
		col := exercise.SortColumn(column)
		return sortHeader{Column: column, Label: label, Indicator: q.Indicator(col)}
	},
	"navLink": func(href, label, active string) navLink {
		return navLink{Href: href, Label: label, Active: strings.TrimPrefix(href, "/") == active}
	},
}

type sortHeader struct {
	Column    string
	Label     string
	Indicator string
}

type navLink struct {
	Href   string
	Label  string
	Active bool
}

// formatWeight rounds to one decimal and drops a trailing ".0", so 60
// renders as "60" and 62.54 as "62.5".
func formatWeight(w float64) string {
	return strconv.FormatFloat(math.Round(w*10)/10, 'f', -1, 64)
}
