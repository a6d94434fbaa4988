package httpapi

import (
	"net/http"
	"net/url"
	"strconv"

	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name" validate:"required,max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type TokenResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.RegisterUser(r.Context(), s.Store, s.Tokens, req.Email, req.Password, req.Name)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.notify(r, services.Event{
		Type:    services.EventUserRegistered,
		Email:   user.Email,
		Subject: "New member registration",
		Data:    map[string]string{"userId": strconv.FormatInt(user.ID, 10), "name": user.Name},
	})
	s.writeSession(w, r, http.StatusCreated, user)
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.AuthenticateUser(r.Context(), s.Store, s.Tokens, req.Email, req.Password)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusOK, user)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, user models.User) {
	token, err := s.Tokens.IssueToken(services.IdentityOf(user), 0)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	WriteJSON(w, status, TokenResponse{Token: token, User: toUserDTO(user)})
}

// Me returns the stored row, which may be newer than the token claims.
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := CurrentIdentity(r)
	user, err := services.GetUserByID(r.Context(), s.Store, id.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]UserDTO{"user": toUserDTO(user)})
}

func (s *Server) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, user, ok, err := services.IssuePasswordReset(r.Context(), s.Store, req.Email)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if ok {
		s.notify(r, services.Event{
			Type:    services.EventPasswordReset,
			Email:   user.Email,
			Subject: "Reset your password",
			Link:    s.Config.FrontendURL + "/reset-password?token=" + url.QueryEscape(token),
		})
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "If the email is registered, a reset link has been sent"})
}

func (s *Server) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := services.ResetPassword(r.Context(), s.Store, s.Tokens, req.Token, req.Password); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

// notify never fails the request; delivery problems are only logged.
func (s *Server) notify(r *http.Request, ev services.Event) {
	if err := s.Notifier.Notify(r.Context(), ev); err != nil {
		s.Logger.Warn("notification failed", "type", ev.Type, "err", err)
	}
}
