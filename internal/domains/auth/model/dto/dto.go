package dto

import (
	"time"

	"ruang/infras/jwt"
	userDto "ruang/internal/domains/user/model/dto"
	"ruang/shared/constant"
)

// UserResponse is the profile returned by register and me.
type UserResponse = userDto.UserResponse

// RegisterRequest is the self-registration form. Accounts created here are always students.
type RegisterRequest struct {
	Email    string  `json:"email"    validate:"required,email,max=100"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Name     string  `json:"name"     validate:"notblank,max=100"`
	NIM      *string `json:"nim"      validate:"omitempty,numeric,max=20"`
}

func (r *RegisterRequest) ToCreateUserRequest() userDto.CreateUserRequest {
	return userDto.CreateUserRequest{
		Email:    r.Email,
		Password: r.Password,
		Name:     r.Name,
		NIM:      r.NIM,
		Role:     constant.RoleStudent,
	}
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateLastLoginRequest struct {
	LastLogin time.Time `db:"last_login" json:"last_login"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (r *TokenResponse) FromTokenPair(tokenPair *jwt.TokenPair) {
	r.AccessToken = tokenPair.AccessToken
	r.RefreshToken = tokenPair.RefreshToken
	r.TokenType = tokenPair.TokenType
	r.ExpiresIn = tokenPair.ExpiresIn
}

type LoginResponse struct {
	TokenResponse
	User userDto.UserResponse `json:"user"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

type UpdatePasswordRequest struct {
	Password string `db:"password" json:"-"`
}
