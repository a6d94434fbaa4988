package httpapi

import (
	"net/http"
	"strings"

	"memberhub-backend-go/internal/models"
	"memberhub-backend-go/internal/services"
)

type SetRoleRequest struct {
	Role models.Role `json:"role" validate:"required"`
}

type SetApprovalRequest struct {
	Status models.ApprovalStatus `json:"status" validate:"required"`
}

type SetBanRequest struct {
	Banned *bool `json:"banned" validate:"required"`
}

func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, size := paging(r, 20, 100)
	filter := services.UserFilter{
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		Role:     models.Role(strings.TrimSpace(r.URL.Query().Get("role"))),
		Page:     page,
		PageSize: size,
	}
	if filter.Role != "" && !filter.Role.Valid() {
		WriteError(w, http.StatusBadRequest, "Invalid role")
		return
	}
	users, total, err := services.ListUsers(r.Context(), s.Store, filter)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ListResponse[UserDTO]{Items: toUserDTOs(users), Total: total, Page: page, Size: size})
}

func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	user, err := services.GetUserByID(r.Context(), s.Store, userID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]UserDTO{"user": toUserDTO(user)})
}

// SetUserRole changes the stored role. Tokens already issued keep the old
// role until they expire.
func (s *Server) SetUserRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var req SetRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.isSelf(r, userID) && !req.Role.IsAdmin() {
		WriteError(w, http.StatusBadRequest, "You cannot remove your own admin role")
		return
	}
	user, err := services.SetUserRole(r.Context(), s.Store, userID, req.Role)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.Logger.Info("role changed", "userId", userID, "role", user.Role, "by", s.actorID(r))
	WriteJSON(w, http.StatusOK, map[string]UserDTO{"user": toUserDTO(user)})
}

func (s *Server) SetUserApproval(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var req SetApprovalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := services.SetApprovalStatus(r.Context(), s.Store, userID, req.Status)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]UserDTO{"user": toUserDTO(user)})
}

func (s *Server) SetUserBan(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var req SetBanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if s.isSelf(r, userID) {
		WriteError(w, http.StatusBadRequest, "You cannot ban yourself")
		return
	}
	user, err := services.SetBanned(r.Context(), s.Store, userID, *req.Banned)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.Logger.Info("ban changed", "userId", userID, "banned", user.IsBanned, "by", s.actorID(r))
	WriteJSON(w, http.StatusOK, map[string]UserDTO{"user": toUserDTO(user)})
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	if s.isSelf(r, userID) {
		WriteError(w, http.StatusBadRequest, "Use the account endpoint to delete yourself")
		return
	}
	if err := services.DeleteUser(r.Context(), s.Store, userID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.Logger.Info("user deleted", "userId", userID, "by", s.actorID(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := services.LoadDashboardStats(r.Context(), s.Store)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) isSelf(r *http.Request, userID int64) bool {
	id, ok := CurrentIdentity(r)
	return ok && id.ID == userID
}

func (s *Server) actorID(r *http.Request) int64 {
	id, _ := CurrentIdentity(r)
	return id.ID
}
