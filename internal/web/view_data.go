package web

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/raicesdev/bienesraices/internal"
	"github.com/raicesdev/bienesraices/internal/auth"
)

// viewData is the context every view is rendered with.
type viewData struct {
	Title     string
	Version   string
	CSRFToken string

	// Session identity, zero value when anonymous.
	LoggedIn bool
	UserName string

	// Errors are the validation errors of the submitted form, in
	// declaration order.
	Errors []FieldError

	// Form holds the submitted values to pre-fill the re-rendered form.
	// Passwords are never included.
	Form any

	// View is the view-specific data.
	View any
}

func (s *Server) newViewData(r *http.Request, title string) viewData {
	data := viewData{
		Title:     title,
		Version:   internal.BuildRevision,
		CSRFToken: csrf.Token(r),
	}

	if claims, ok := claimsFromCtx(r.Context()); ok {
		data.LoggedIn = true
		data.UserName = claims.Name
	}

	return data
}

// messageView is the data for the generic message view used by the
// confirmation and reset flows.
type messageView struct {
	Message string
	IsError bool
}

func (s *Server) writeView(w http.ResponseWriter, r *http.Request, name string, data viewData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.deps.ViewRenderer.Render(w, name, data); err != nil {
		s.deps.Logger.Error("failed to render view",
			"view", name,
			"url", r.URL.String(),
			"error", err,
		)
	}
}

// claims returns the session claims, which the loggedIn guard guarantees to
// be present on protected routes.
func (s *Server) claims(r *http.Request) auth.SessionClaims {
	claims, _ := claimsFromCtx(r.Context())
	return claims
}
