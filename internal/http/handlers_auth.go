package http

import (
	"errors"
	"net/http"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if s.session.Snapshot().Authenticated {
		s.redirect(w, r, "/home")
		return
	}
	s.redirect(w, r, "/login")
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", s.page(w, r, "Login"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	pc := s.page(w, r, "Login")
	pc.Form = r.PostForm
	cred := core.Credentials{Email: formValue(r.PostForm, "email"), Password: r.PostForm.Get("password")}
	user, err := s.auth.Login(r.Context(), cred)
	if err != nil {
		s.formError(w, r, err, "login", pc)
		return
	}
	setFlash(w, flashSuccess, "Welcome back, "+user.Name+".")
	s.redirect(w, r, "/home")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", s.page(w, r, "Register"))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	pc := s.page(w, r, "Register")
	pc.Form = r.PostForm
	reg := core.Registration{
		Name:     formValue(r.PostForm, "name"),
		Email:    formValue(r.PostForm, "email"),
		Password: r.PostForm.Get("password"),
	}
	if err := reg.Validate(); err != nil {
		s.formError(w, r, err, "register", pc)
		return
	}
	if err := core.ValidateNewPassword(reg.Password, r.PostForm.Get("confirm")); err != nil {
		s.formError(w, r, err, "register", pc)
		return
	}
	if err := s.client.Register(r.Context(), reg); err != nil {
		s.formError(w, r, err, "register", pc)
		return
	}
	setFlash(w, flashSuccess, "Account created. You can log in now.")
	s.redirect(w, r, "/login")
}

// Forgot password runs in three steps on one page: send the code, verify
// it, set the new password. The hidden "step" field says which one posted.
const (
	stepEmail  = "email"
	stepVerify = "verify"
	stepReset  = "reset"
)

type forgotData struct {
	Step  string
	Email string
}

func (s *Server) handleForgotPage(w http.ResponseWriter, r *http.Request) {
	pc := s.page(w, r, "Forgot Password")
	pc.Data = forgotData{Step: stepEmail}
	s.render(w, r, http.StatusOK, "forgot_password", pc)
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	form := r.PostForm
	email := formValue(form, "email")
	step := formValue(form, "step")
	pc := s.page(w, r, "Forgot Password")
	pc.Form = form
	pc.Data = forgotData{Step: step, Email: email}

	var err error
	next := step
	switch step {
	case stepEmail:
		err = s.client.SendOTP(ctx, email)
		next = stepVerify
	case stepVerify:
		err = s.client.VerifyOTP(ctx, email, formValue(form, "otp"))
		next = stepReset
	case stepReset:
		if err = s.client.ResetPassword(ctx, email, form.Get("password"), form.Get("confirm")); err == nil {
			log.FromContext(ctx).InfoContext(ctx, "Password reset", log.FieldOperation, log.OpUpdate)
			setFlash(w, flashSuccess, "Password updated. Log in with the new password.")
			s.redirect(w, r, "/login")
			return
		}
	default:
		http.Error(w, "Unknown step", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.formError(w, r, err, "forgot_password", pc)
		return
	}
	pc.Data = forgotData{Step: next, Email: email}
	pc.Form = nil
	s.render(w, r, http.StatusOK, "forgot_password", pc)
}

func (s *Server) handleChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "change_password", s.page(w, r, "Change Password"))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	pc := s.page(w, r, "Change Password")
	form := r.PostForm
	err := s.client.ChangePassword(r.Context(), pc.Session.User.Email,
		form.Get("oldPassword"), form.Get("password"), form.Get("confirm"))
	if err != nil {
		if errors.Is(err, core.ErrEmptyPassword) {
			pc.Errors["oldPassword"] = err.Error()
			s.render(w, r, http.StatusUnprocessableEntity, "change_password", pc)
			return
		}
		s.formError(w, r, err, "change_password", pc)
		return
	}
	setFlash(w, flashSuccess, "Password changed.")
	s.redirect(w, r, "/home")
}

// handleLogout is local: it clears the session and the refresh cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context()); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Logout failed", log.FieldError, err)
		http.Error(w, "Logout failed", http.StatusInternalServerError)
		return
	}
	setFlash(w, flashSuccess, "You have been logged out.")
	s.redirect(w, r, "/login")
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	if _, err := s.session.ToggleTheme(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Theme not saved", log.FieldError, err)
	}
	s.redirect(w, r, backTo(r, "/"))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}
