package dto

import "github.com/google/uuid"

type SendOTPRequest struct {
	Phone string `json:"phone"`
}

type SendOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// OTP is only populated in mock mode so local clients can log in
	// without an SMS provider.
	OTP string `json:"otp,omitempty"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

type AuthResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

type UserResponse struct {
	ID    uuid.UUID `json:"id"`
	Phone string    `json:"phone"`
	Name  *string   `json:"name"`
}

type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminAuthResponse struct {
	Success bool          `json:"success"`
	Token   string        `json:"token"`
	Admin   AdminResponse `json:"admin"`
}

type AdminResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}
