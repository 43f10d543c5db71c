package handlers

import (
	"net/http"

	"tux-order-services/internal/middleware"
	"tux-order-services/internal/users"
	"tux-order-services/pkg/response"
)

func (h *Handler) AuthRegister(w http.ResponseWriter, r *http.Request) {
	var body users.RegisterInput
	if err := decodeJSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	session, err := h.Users.Register(r.Context(), body)
	if err != nil {
		h.writeUserError(w, err)
		return
	}
	response.Created(w, session)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) AuthLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeJSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	session, err := h.Users.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeUserError(w, err)
		return
	}
	response.Success(w, session)
}

func (h *Handler) AuthMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	user, err := h.Users.Me(r.Context(), userID)
	if err != nil {
		h.writeUserError(w, err)
		return
	}
	response.Success(w, user)
}

func (h *Handler) AuthUpdateMe(w http.ResponseWriter, r *http.Request) {
	var body users.ProfileInput
	if err := decodeJSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	userID, _ := middleware.GetUserID(r.Context())
	user, err := h.Users.UpdateProfile(r.Context(), userID, body)
	if err != nil {
		h.writeUserError(w, err)
		return
	}
	response.Success(w, user)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) AuthForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body forgotPasswordRequest
	if err := decodeJSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := h.Users.ForgotPassword(r.Context(), body.Email); err != nil {
		if _, ok := users.AsError(err); ok {
			h.writeUserError(w, err)
			return
		}
		// Lookup failures answer like success so accounts cannot be probed.
		h.Logger.Warn("forgot password failed", zapError(err))
	}
	response.Success(w, map[string]any{"message": "If the email exists, a reset link has been sent."})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *Handler) AuthResetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetPasswordRequest
	if err := decodeJSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if err := h.Users.ResetPassword(r.Context(), body.Token, body.Password); err != nil {
		h.writeUserError(w, err)
		return
	}
	response.Success(w, map[string]any{"message": "Password updated successfully."})
}
