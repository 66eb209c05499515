// Package handler contains the HTTP handlers for the board.
//
// Every handler either renders one of the HTML views or redirects. Failures
// are logged and turned into a redirect to a safe page; no handler returns
// structured error data to the browser.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/secrets-board/internal/model"
	"github.com/sakif/secrets-board/internal/session"
)

// Page names. Each has a templates/<name>.html file.
const (
	PageHome     = "home"
	PageLogin    = "login"
	PageRegister = "register"
	PageSecrets  = "secrets"
	PageSubmit   = "submit"
)

var pages = []string{PageHome, PageLogin, PageRegister, PageSecrets, PageSubmit}

// PageData is the value every template executes against.
type PageData struct {
	LoggedIn      bool
	Identity      session.Identity
	GoogleEnabled bool
	Users         []model.User
}

// Renderer holds one parsed template set per page, each combining base.html
// with the page file.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses the templates in fsys once at startup.
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages)), logger: logger}
	for _, name := range pages {
		tmpl, err := template.ParseFS(fsys, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render executes page into a buffer first so a template error produces a
// clean 500 instead of a half-written page.
func (rd *Renderer) Render(w http.ResponseWriter, status int, page string, data PageData) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown page", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// pageData fills the fields every page shares from the request.
func pageData(r *http.Request, googleEnabled bool) PageData {
	identity, ok := session.IdentityFromContext(r.Context())
	return PageData{
		LoggedIn:      ok,
		Identity:      identity,
		GoogleEnabled: googleEnabled,
	}
}
