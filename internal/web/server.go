package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/schema"
	"github.com/raicesdev/bienesraices/internal/auth"
	"github.com/raicesdev/bienesraices/internal/errorz"
	"github.com/raicesdev/bienesraices/internal/krypto"
	"github.com/raicesdev/bienesraices/internal/property"
)

// csrfTokenCookieName is the name of the cookie that stores the CSRF token.
const csrfTokenCookieName = "_csrf"

// csrfTokenField is the form field name for the CSRF token.
const csrfTokenField = "csrf_token"

// ViewRenderer renders named views with the given data.
type ViewRenderer interface {
	Render(w io.Writer, name string, data any) error
}

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger       *slog.Logger
	ViewRenderer ViewRenderer
	AuthService  *auth.Service
	Properties   *property.Service
	Sessions     *auth.SessionManager
	DistFS       http.FileSystem

	// UploadsDir is the directory property images are stored in and
	// served from.
	UploadsDir string
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	CSRFKey      krypto.Key
	SecureCookie bool
}

type Server struct {
	deps         *ServerDeps
	mux          *http.ServeMux
	decoder      *schema.Decoder
	handler      http.Handler
	secureCookie bool
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	s := &Server{
		deps:         deps,
		mux:          http.NewServeMux(),
		decoder:      schema.NewDecoder(),
		secureCookie: cfg.SecureCookie,
	}

	// Forms carry the CSRF field, which no handler struct knows about.
	s.decoder.IgnoreUnknownKeys(true)

	// Public area.
	s.public("GET /{$}", s.home)
	s.public("GET /propiedad/{id}", s.showProperty)
	s.loggedIn("POST /propiedad/{id}", s.sendMessage)

	// Account lifecycle.
	s.publicOnly("GET /login", s.loginForm)
	s.publicOnly("POST /login", s.login)
	s.loggedIn("POST /cerrar-sesion", s.logout)
	s.publicOnly("GET /registro", s.registerForm)
	s.publicOnly("POST /registro", s.register)
	s.public("GET /confirmar/{token}", s.confirm)
	s.publicOnly("GET /olvide-password", s.forgotPasswordForm)
	s.publicOnly("POST /olvide-password", s.forgotPassword)
	s.publicOnly("GET /olvide-password/{token}", s.resetPasswordForm)
	s.publicOnly("POST /olvide-password/{token}", s.resetPassword)

	// Property management.
	s.loggedIn("GET /mis-propiedades", s.myProperties)
	s.loggedIn("GET /propiedades/crear", s.createPropertyForm)
	s.loggedIn("POST /propiedades/crear", s.createProperty)
	s.loggedIn("GET /propiedades/editar/{id}", s.editPropertyForm)
	s.loggedIn("POST /propiedades/editar/{id}", s.editProperty)
	s.loggedIn("POST /propiedades/eliminar/{id}", s.deleteProperty)
	s.loggedIn("GET /propiedades/agregar-imagen/{id}", s.addImageForm)
	s.loggedIn("POST /propiedades/agregar-imagen/{id}", s.addImage)
	s.loggedIn("POST /propiedades/estado/{id}", s.toggleState)
	s.loggedIn("GET /mensajes/{id}", s.messages)

	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(s.deps.DistFS)))
	s.mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.deps.UploadsDir))))

	// Wrap the mux with global middlewares.
	csrfMW := csrf.Protect(
		cfg.CSRFKey.SecretValue(),
		csrf.CookieName(csrfTokenCookieName),
		csrf.FieldName(csrfTokenField),
		csrf.Secure(cfg.SecureCookie),
	)

	middlewares := []func(http.Handler) http.Handler{
		csrfMW,
		s.session,
	}
	s.handler = s.mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		s.handler = middlewares[i](s.handler)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// public routes are open to everyone.
func (s *Server) public(route string, h http.HandlerFunc) {
	s.mux.Handle(route, h)
}

// publicOnly routes redirect logged-in visitors to their property overview.
func (s *Server) publicOnly(route string, h http.HandlerFunc) {
	s.mux.Handle(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := claimsFromCtx(r.Context()); ok {
			http.Redirect(w, r, "/mis-propiedades", http.StatusFound)
			return
		}
		h(w, r)
	}))
}

// loggedIn routes redirect anonymous visitors to the login form.
func (s *Server) loggedIn(route string, h http.HandlerFunc) {
	s.mux.Handle(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := claimsFromCtx(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h(w, r)
	}))
}

// handleError terminates a request that failed on something other than user
// input. User mistakes never reach this point, they re-render their form.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errorz.ErrNotFound) {
		http.NotFound(w, r)
		return
	}

	s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
