package web

import (
	"errors"
	"net/http"

	"github.com/raicesdev/bienesraices/internal/auth"
	"github.com/raicesdev/bienesraices/internal/email"
	"github.com/raicesdev/bienesraices/internal/errorz"
	"github.com/raicesdev/bienesraices/internal/krypto"
)

type loginForm struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
}

type registerForm struct {
	Name           string `schema:"nombre"`
	Email          string `schema:"email"`
	Password       string `schema:"password"`
	RepeatPassword string `schema:"repetir_password"`
}

type forgotForm struct {
	Email string `schema:"email"`
}

type resetForm struct {
	Password string `schema:"password"`
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	properties, err := s.deps.Properties.Published(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	data := s.newViewData(r, "Inicio")
	data.View = propertyListView(properties)
	s.writeView(w, r, "home", data)
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	data := s.newViewData(r, "Iniciar Sesión")
	data.Form = loginForm{}
	s.writeView(w, r, "login", data)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	rerender := func(errs []FieldError) {
		data := s.newViewData(r, "Iniciar Sesión")
		data.Errors = errs
		data.Form = loginForm{Email: form.Email}
		s.writeView(w, r, "login", data)
	}

	errs := runChecks([]check{
		{"email", notEmpty(form.Email), "El email es obligatorio"},
		{"email", validEmail(form.Email), "Eso no parece un email"},
		{"password", notEmpty(form.Password), "El password es obligatorio"},
		{"password", minLen(form.Password, 6), "El password debe ser de al menos 6 caracteres"},
	})
	if len(errs) > 0 {
		rerender(errs)
		return
	}

	addr, err := email.ParseAddress(form.Email)
	if err != nil {
		rerender([]FieldError{{Field: "email", Message: "Eso no parece un email"}})
		return
	}

	pwd, err := auth.ParsePassword(form.Password)
	if err != nil {
		rerender([]FieldError{{Field: "password", Message: "El password es incorrecto"}})
		return
	}

	account, err := s.deps.AuthService.Authenticate(r.Context(), auth.Credentials{
		Email:    addr,
		Password: pwd,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrNoAccount):
			rerender([]FieldError{{Field: "email", Message: "El usuario no existe"}})
		case errors.Is(err, auth.ErrNotConfirmed):
			rerender([]FieldError{{Field: "email", Message: "Tu cuenta no ha sido confirmada"}})
		case errors.Is(err, auth.ErrBadPassword):
			rerender([]FieldError{{Field: "password", Message: "El password es incorrecto"}})
		default:
			s.handleError(w, r, err)
		}
		return
	}

	token, err := s.deps.Sessions.Issue(account)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	// Drop the pre-login CSRF token, a fresh one is generated after the
	// redirect. See https://security.stackexchange.com/questions/209993
	http.SetCookie(w, &http.Cookie{
		Name:   csrfTokenCookieName,
		MaxAge: -1,
	})

	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/mis-propiedades", http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	data := s.newViewData(r, "Crear Cuenta")
	data.Form = registerForm{}
	s.writeView(w, r, "registro", data)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	rerender := func(errs []FieldError) {
		data := s.newViewData(r, "Crear Cuenta")
		data.Errors = errs
		data.Form = registerForm{Name: form.Name, Email: form.Email}
		s.writeView(w, r, "registro", data)
	}

	errs := runChecks([]check{
		{"nombre", notEmpty(form.Name), "El nombre no puede ir vacío"},
		{"email", validEmail(form.Email), "Eso no parece un email"},
		{"password", minLen(form.Password, 6), "El password debe ser de al menos 6 caracteres"},
		{"repetir_password", func() bool { return form.Password == form.RepeatPassword }, "Los passwords no son iguales"},
	})
	if len(errs) > 0 {
		rerender(errs)
		return
	}

	addr, err := email.ParseAddress(form.Email)
	if err != nil {
		rerender([]FieldError{{Field: "email", Message: "Eso no parece un email"}})
		return
	}

	pwd, err := auth.ParsePassword(form.Password)
	if err != nil {
		rerender([]FieldError{{Field: "password", Message: "El password debe ser de al menos 6 caracteres"}})
		return
	}

	err = s.deps.AuthService.Register(r.Context(), auth.Registration{
		Name:     form.Name,
		Email:    addr,
		Password: pwd,
	})
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateAccount) {
			rerender([]FieldError{{Field: "email", Message: "El usuario ya está registrado"}})
			return
		}
		s.handleError(w, r, err)
		return
	}

	data := s.newViewData(r, "Cuenta Creada Correctamente")
	data.View = messageView{
		Message: "Hemos enviado un email de confirmación, presiona en el enlace",
	}
	s.writeView(w, r, "mensaje", data)
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	softError := func() {
		data := s.newViewData(r, "Error al confirmar tu cuenta")
		data.View = messageView{
			Message: "Hubo un error al confirmar tu cuenta, intenta de nuevo",
			IsError: true,
		}
		s.writeView(w, r, "mensaje", data)
	}

	token, err := krypto.ParseToken(r.PathValue("token"))
	if err != nil {
		softError()
		return
	}

	err = s.deps.AuthService.Confirm(r.Context(), token)
	if err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			softError()
			return
		}
		s.handleError(w, r, err)
		return
	}

	data := s.newViewData(r, "Cuenta Confirmada")
	data.View = messageView{
		Message: "La cuenta se confirmó correctamente",
	}
	s.writeView(w, r, "mensaje", data)
}

func (s *Server) forgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	data := s.newViewData(r, "Recupera tu acceso a Bienes Raices")
	data.Form = forgotForm{}
	s.writeView(w, r, "olvide-password", data)
}

func (s *Server) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var form forgotForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	rerender := func(errs []FieldError) {
		data := s.newViewData(r, "Recupera tu acceso a Bienes Raices")
		data.Errors = errs
		data.Form = form
		s.writeView(w, r, "olvide-password", data)
	}

	addr, err := email.ParseAddress(form.Email)
	if err != nil {
		rerender([]FieldError{{Field: "email", Message: "Eso no parece un email"}})
		return
	}

	err = s.deps.AuthService.RequestPasswordReset(r.Context(), addr)
	if err != nil {
		if errors.Is(err, errorz.ErrNotFound) {
			rerender([]FieldError{{Field: "email", Message: "El email no pertenece a ningún usuario"}})
			return
		}
		s.handleError(w, r, err)
		return
	}

	data := s.newViewData(r, "Reestablece tu Password")
	data.View = messageView{
		Message: "Hemos enviado un email con las instrucciones",
	}
	s.writeView(w, r, "mensaje", data)
}

func (s *Server) resetPasswordForm(w http.ResponseWriter, r *http.Request) {
	token, err := krypto.ParseToken(r.PathValue("token"))
	if err == nil {
		err = s.deps.AuthService.VerifyResetToken(r.Context(), token)
	}
	if err != nil {
		if errors.Is(err, krypto.ErrInvalidToken) || errors.Is(err, errorz.ErrNotFound) {
			data := s.newViewData(r, "Reestablece tu Password")
			data.View = messageView{
				Message: "Hubo un error al validar tu información, intenta de nuevo",
				IsError: true,
			}
			s.writeView(w, r, "mensaje", data)
			return
		}
		s.handleError(w, r, err)
		return
	}

	data := s.newViewData(r, "Reestablece tu Password")
	data.Form = resetForm{}
	s.writeView(w, r, "reset-password", data)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var form resetForm
	if err := s.decodeForm(r, &form); err != nil {
		s.handleError(w, r, err)
		return
	}

	errs := runChecks([]check{
		{"password", minLen(form.Password, 6), "El password debe ser de al menos 6 caracteres"},
	})
	if len(errs) > 0 {
		data := s.newViewData(r, "Reestablece tu Password")
		data.Errors = errs
		data.Form = resetForm{}
		s.writeView(w, r, "reset-password", data)
		return
	}

	softError := func() {
		data := s.newViewData(r, "Reestablece tu Password")
		data.View = messageView{
			Message: "Hubo un error al validar tu información, intenta de nuevo",
			IsError: true,
		}
		s.writeView(w, r, "mensaje", data)
	}

	token, err := krypto.ParseToken(r.PathValue("token"))
	if err != nil {
		softError()
		return
	}

	pwd, err := auth.ParsePassword(form.Password)
	if err != nil {
		data := s.newViewData(r, "Reestablece tu Password")
		data.Errors = []FieldError{{Field: "password", Message: "El password debe ser de al menos 6 caracteres"}}
		data.Form = resetForm{}
		s.writeView(w, r, "reset-password", data)
		return
	}

	err = s.deps.AuthService.ResetPassword(r.Context(), token, pwd)
	if err != nil {
		// A consumed or unknown token gets the soft error view, the user
		// can restart the flow.
		if errors.Is(err, errorz.ErrNotFound) {
			softError()
			return
		}
		s.handleError(w, r, err)
		return
	}

	data := s.newViewData(r, "Password Reestablecido")
	data.View = messageView{
		Message: "El password se guardó correctamente",
	}
	s.writeView(w, r, "mensaje", data)
}
