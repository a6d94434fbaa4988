package httpapi

import (
	"net/http"

	"memberhub-backend-go/internal/services"
)

type ProfileUpdateRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=120"`
	Bio          *string `json:"bio" validate:"omitempty,max=2000"`
	Organization *string `json:"organization" validate:"omitempty,max=200"`
	AvatarURL    *string `json:"avatarUrl" validate:"omitempty,max=2048"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := CurrentIdentity(r)
	var req ProfileUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.UpdateProfile(r.Context(), s.Store, id.ID, services.ProfileUpdate{
		Name:         req.Name,
		Bio:          req.Bio,
		Organization: req.Organization,
		AvatarURL:    req.AvatarURL,
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]UserDTO{"user": toUserDTO(user)})
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, _ := CurrentIdentity(r)
	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := services.ChangePassword(r.Context(), s.Store, s.Tokens, id.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
}

func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := CurrentIdentity(r)
	if err := services.DeleteUser(r.Context(), s.Store, id.ID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
