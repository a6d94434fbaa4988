package httpapi

import (
	"time"

	"memberhub-backend-go/internal/models"
)

type UserDTO struct {
	ID             int64                 `json:"id"`
	Email          string                `json:"email"`
	Name           string                `json:"name"`
	Role           models.Role           `json:"role"`
	ApprovalStatus models.ApprovalStatus `json:"approvalStatus"`
	AccountKind    models.AccountKind    `json:"accountKind"`
	IsBanned       bool                  `json:"isBanned"`
	AvatarURL      *string               `json:"avatarUrl,omitempty"`
	Bio            *string               `json:"bio,omitempty"`
	Organization   *string               `json:"organization,omitempty"`
	LastLoginAt    *time.Time            `json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// toUserDTO never exposes the credential or the reset token.
func toUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Role:           u.Role,
		ApprovalStatus: u.ApprovalStatus,
		AccountKind:    u.AccountKind,
		IsBanned:       u.IsBanned,
		AvatarURL:      u.AvatarURL,
		Bio:            u.Bio,
		Organization:   u.Organization,
		LastLoginAt:    u.LastLoginAt,
		CreatedAt:      u.CreatedAt,
	}
}

func toUserDTOs(users []models.User) []UserDTO {
	items := make([]UserDTO, 0, len(users))
	for _, u := range users {
		items = append(items, toUserDTO(u))
	}
	return items
}

// AuthorDTO is the public view of a content author.
type AuthorDTO struct {
	ID   int64       `json:"id"`
	Name string      `json:"name"`
	Role models.Role `json:"role,omitempty"`
}
