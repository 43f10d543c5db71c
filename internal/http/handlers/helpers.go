package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"tux-order-services/internal/checkout"
	"tux-order-services/internal/users"
	"tux-order-services/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errMissingParam = errors.New("missing param")

func zapError(err error) zap.Field {
	return zap.Error(err)
}

func readPathString(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

func readPathInt(r *http.Request, key string) (int, error) {
	value := readPathString(r, key)
	if value == "" {
		return 0, errMissingParam
	}
	return strconv.Atoi(value)
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

// rawString reads a JSON value that may be sent as a number or a string.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func writeValidationError(w http.ResponseWriter, verr *checkout.Error) {
	response.ErrorDetails(w, verr.StatusCode, string(verr.Code), verr.Message, verr.Details)
}

// writeUserError renders account errors; anything else is a 500.
func (h *Handler) writeUserError(w http.ResponseWriter, err error) {
	if ue, ok := users.AsError(err); ok {
		response.Error(w, ue.StatusCode, string(ue.Code), ue.Message)
		return
	}
	h.Logger.Error("account request failed", zapError(err))
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong.")
}
