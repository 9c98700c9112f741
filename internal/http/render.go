package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"slices"
	"strings"

	"budgetbook/internal/core"
	"budgetbook/internal/gateway"
	"budgetbook/internal/log"
	"budgetbook/internal/middleware/trace"
	"budgetbook/internal/nav"
	"budgetbook/internal/session"
	"budgetbook/internal/table"
)

const (
	flashCookie  = "flash"
	flashSuccess = "success"
	flashError   = "error"
)

type Flash struct {
	Kind    string
	Message string
}

// PageContext is everything the layout and a page template can read. It
// is built per request; nothing in it is shared.
type PageContext struct {
	Title        string
	Path         string
	Session      session.Snapshot
	ThemeIcon    nav.Icon
	Menu         []nav.Entry
	SolutionMenu []nav.Entry
	Crumbs       []nav.Crumb
	Flash        *Flash
	RequestID    string
	Form         url.Values
	Errors       FormErrors
	Data         any
}

// Renderer holds one template set per page, each a clone of the layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses templates/layout.html plus every other
// templates/*.html in fsys as a page named after its file.
func NewRenderer(fsys fs.FS, f *table.Formatter) (*Renderer, error) {
	funcs := template.FuncMap{
		"money":     f.Grouped,
		"date":      f.Date,
		"shareRole": func(shares []core.Share, userID string) core.ShareRole { return shareRoleOf(shares, userID) },
		"roles":     core.Roles,
		"has":       slices.Contains[[]string],
	}
	base, err := template.New("layout").Funcs(funcs).ParseFS(fsys, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "layout" {
			continue
		}
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes page into a buffer first so a template error never
// leaves a half written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, pc *PageContext) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", pc); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// page builds the context shared by every page. The flash cookie is
// consumed here.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) *PageContext {
	snap := s.session.Snapshot()
	pc := &PageContext{
		Title:     title,
		Path:      r.URL.Path,
		Session:   snap,
		ThemeIcon: nav.IconMoon,
		Flash:     takeFlash(w, r),
		RequestID: trace.GetRequestID(r.Context()),
		Errors:    FormErrors{},
	}
	if snap.Theme == session.ThemeDark {
		pc.ThemeIcon = nav.IconSun
	}
	if snap.Authenticated {
		pc.Menu = nav.MainMenu(snap.User.Role, r.URL.Path)
		pc.Crumbs = nav.Breadcrumbs(r.URL.Path, nil)
	}
	return pc
}

// solutionPage adds the solution sub menu and names the solution in the
// breadcrumbs.
func (s *Server) solutionPage(w http.ResponseWriter, r *http.Request, title string, sol core.Solution) *PageContext {
	pc := s.page(w, r, title)
	pc.SolutionMenu = nav.SolutionMenu(pc.Session.User.Role, sol.ID, r.URL.Path)
	pc.Crumbs = nav.Breadcrumbs(r.URL.Path, map[string]string{sol.ID: sol.Name})
	return pc
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, pc *PageContext) {
	if err := s.views.Render(w, status, name, pc); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template render failed",
			log.FieldOperation, log.OpRender,
			"page", name,
			log.FieldError, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	pc := s.page(w, r, http.StatusText(status))
	pc.Data = msg
	s.render(w, r, status, "error", pc)
}

// redirect uses 303 so a POST is followed by a GET.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// pageError reports a failure while loading a page. An expired session
// goes back to login; backend statuses are passed through when they are
// client errors and shown as 502 otherwise.
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if s.reauth(w, r, err) {
		return
	}
	logger := log.FromContext(r.Context())
	var se *gateway.StatusError
	switch {
	case errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500:
		logger.WarnContext(r.Context(), "Backend rejected page load", log.FieldPath, r.URL.Path, log.FieldError, err)
		s.renderError(w, r, se.StatusCode, gateway.Message(err))
	case errors.Is(err, context.Canceled):
	default:
		logger.ErrorContext(r.Context(), "Page load failed", log.FieldPath, r.URL.Path, log.FieldError, err)
		s.renderError(w, r, http.StatusBadGateway, gateway.Message(err))
	}
}

// actionError reports a failed mutation as a flash message on back.
func (s *Server) actionError(w http.ResponseWriter, r *http.Request, err error, back string) {
	if s.reauth(w, r, err) {
		return
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Action failed",
		log.FieldPath, r.URL.Path, log.FieldError, err)
	setFlash(w, flashError, gateway.Message(err))
	s.redirect(w, r, back)
}

func (s *Server) reauth(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, gateway.ErrReauthRequired) {
		return false
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Session expired, sending to login", log.FieldPath, r.URL.Path)
	setFlash(w, flashError, gateway.Message(err))
	s.redirect(w, r, "/login")
	return true
}

func setFlash(w http.ResponseWriter, kind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(kind + "\x00" + msg)),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(string(raw), "\x00")
	if !ok || msg == "" {
		return nil
	}
	return &Flash{Kind: kind, Message: msg}
}

func shareRoleOf(shares []core.Share, userID string) core.ShareRole {
	for _, sh := range shares {
		if sh.User == userID {
			return sh.Role
		}
	}
	return ""
}

// formError re-renders page with err attached to the form. Validation
// errors answer 422, backend client errors keep their status and anything
// else is a 502. An expired session redirects to login instead.
func (s *Server) formError(w http.ResponseWriter, r *http.Request, err error, name string, pc *PageContext) {
	if s.reauth(w, r, err) {
		return
	}
	status := http.StatusBadGateway
	var se *gateway.StatusError
	switch {
	case isValidation(err):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500:
		status = se.StatusCode
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Form submission failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
	}
	if pc.Errors == nil {
		pc.Errors = FormErrors{}
	}
	if isValidation(err) {
		pc.Errors.Add(err)
	} else {
		pc.Errors[""] = gateway.Message(err)
	}
	s.render(w, r, status, name, pc)
}

// invalid re-renders page with errs and a 422.
func (s *Server) invalid(w http.ResponseWriter, r *http.Request, errs FormErrors, name string, pc *PageContext) {
	pc.Errors = errs
	s.render(w, r, http.StatusUnprocessableEntity, name, pc)
}

// backTo returns the local path of the Referer, or fallback.
func backTo(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return fallback
	}
	if ref.Host != "" && ref.Host != r.Host {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
