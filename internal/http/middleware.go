package http

import (
	"net/http"
	"net/url"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

type middleware func(http.Handler) http.Handler

// chain applies mws so that the first one is outermost.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// requireAuth sends visitors without a session to the login page.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.session.Snapshot().Authenticated {
			s.redirect(w, r, "/login")
			return
		}
		next(w, r)
	})
}

// requireRole is requireAuth plus a role check; other roles get a 403 page.
func (s *Server) requireRole(next http.HandlerFunc, roles ...core.Role) http.Handler {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !s.session.Snapshot().HasRole(roles...) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Forbidden page",
				log.FieldPath, r.URL.Path, "role", s.session.Snapshot().User.Role)
			s.renderError(w, r, http.StatusForbidden, "You do not have access to this page.")
			return
		}
		next(w, r)
	})
}

// guestOnly keeps logged in users away from the login and sign-up pages.
func (s *Server) guestOnly(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.session.Snapshot().Authenticated {
			s.redirect(w, r, "/home")
			return
		}
		next(w, r)
	})
}

// sameOrigin rejects state-changing requests that a browser marks as cross
// site. Requests without Sec-Fetch-Site or Origin (curl, tests) pass.
func sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		switch r.Header.Get("Sec-Fetch-Site") {
		case "", "same-origin", "none":
		default:
			http.Error(w, "Cross-site request rejected", http.StatusForbidden)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" && origin != "null" {
			u, err := url.Parse(origin)
			if err != nil || u.Host != r.Host {
				http.Error(w, "Cross-site request rejected", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
