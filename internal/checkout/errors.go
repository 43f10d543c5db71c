package checkout

import "net/http"

type ErrorCode string

const (
	ErrEmptyCart            ErrorCode = "EMPTY_CART"
	ErrAddressRequired      ErrorCode = "ADDRESS_REQUIRED"
	ErrZoneRequired         ErrorCode = "ZONE_REQUIRED"
	ErrPhoneInvalid         ErrorCode = "INVALID_PHONE"
	ErrEmailRequired        ErrorCode = "EMAIL_REQUIRED"
	ErrPaymentMethodInvalid ErrorCode = "INVALID_PAYMENT_METHOD"
	ErrPaymentIncomplete    ErrorCode = "PAYMENT_INCOMPLETE"
	ErrPaymentMismatch      ErrorCode = "PAYMENT_MISMATCH"
)

type Error struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

func ValidationError(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, StatusCode: http.StatusBadRequest, Details: details}
}
