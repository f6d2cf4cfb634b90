package dto

import (
	"github.com/google/uuid"
	"github.com/kiteboard/kiteboard-backend/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is the only shape in which a user leaves the server.
type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
	AuthProvider string    `json:"auth_provider"`
}

func NewUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	resp := &UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		AuthProvider: u.AuthProvider,
	}
	if u.Username != nil {
		resp.Username = *u.Username
	}
	return resp
}

type AuthResponse struct {
	Message string        `json:"message"`
	User    *UserResponse `json:"user"`
}

type CurrentUserResponse struct {
	User *UserResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Sessions  string `json:"sessions"`
}
