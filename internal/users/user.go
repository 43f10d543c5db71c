// Package users is the customer account service: registration, login,
// profile updates and password resets.
package users

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	Address      string
	Phone        string
}

// Changes lists the fields to update; nil fields are left alone.
type Changes struct {
	Email        *string
	Name         *string
	Address      *string
	Phone        *string
	PasswordHash *string
}

type ResetToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

type Store interface {
	Create(ctx context.Context, u NewUser) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	Update(ctx context.Context, id string, changes Changes) (User, error)
	CreateResetToken(ctx context.Context, t ResetToken) error
	FindResetToken(ctx context.Context, token string) (ResetToken, error)
	DeleteResetToken(ctx context.Context, token string) error
}

type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeEmailTaken   ErrorCode = "EMAIL_TAKEN"
	CodeInvalidLogin ErrorCode = "INVALID_CREDENTIALS"
	CodeInvalidReset ErrorCode = "INVALID_RESET_TOKEN"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// Error is a failure the caller can show as is.
type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code ErrorCode, status int, message string) *Error {
	return &Error{Code: code, Message: message, StatusCode: status}
}

var (
	errRegisterFields = newError(CodeValidation, http.StatusBadRequest, "Email, password, and name are required.")
	errLoginFields    = newError(CodeValidation, http.StatusBadRequest, "Email and password are required.")
	errEmailRequired  = newError(CodeValidation, http.StatusBadRequest, "Email is required.")
	errResetFields    = newError(CodeValidation, http.StatusBadRequest, "Token and new password are required.")
	errEmailTaken     = newError(CodeEmailTaken, http.StatusConflict, "Email is already registered.")
	errInvalidLogin   = newError(CodeInvalidLogin, http.StatusUnauthorized, "Invalid email or password.")
	errInvalidReset   = newError(CodeInvalidReset, http.StatusBadRequest, "Invalid or expired token.")
	errUserGone       = newError(CodeUnauthorized, http.StatusUnauthorized, "User not found.")
)

func AsError(err error) (*Error, bool) {
	var ue *Error
	if !errors.As(err, &ue) || ue == nil {
		return nil, false
	}
	return ue, true
}
