package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

// ErrRailNotConfigured means the tenant has not enabled or credentialed the
// requested rail. Surfaced to the caller, never retried.
func ErrRailNotConfigured(rail Rail) *AppError {
	return &AppError{Code: "RAIL_NOT_CONFIGURED", Message: fmt.Sprintf("rail %s is not configured for this tenant", rail), Status: 422}
}

// ErrGatewayTimeout means the gateway call exceeded its deadline before
// returning a handle. No pending row exists in that case.
func ErrGatewayTimeout(cause error) *AppError {
	return &AppError{Code: "GATEWAY_TIMEOUT", Message: "payment gateway timed out", Status: 504, Cause: cause}
}

// ErrGatewayUnavailable covers transport failures and gateway-side errors.
func ErrGatewayUnavailable(msg string, cause error) *AppError {
	return &AppError{Code: "GATEWAY_UNAVAILABLE", Message: msg, Status: 502, Cause: cause}
}

// ErrMalformedWebhook means the payload matched neither known callback shape.
func ErrMalformedWebhook(msg string) *AppError {
	return &AppError{Code: "MALFORMED_WEBHOOK", Message: msg, Status: 400}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}
