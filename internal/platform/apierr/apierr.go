package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromDomain maps cart error kinds onto HTTP statuses and stable codes.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeInvalidQuantity:
		return New(http.StatusUnprocessableEntity, "cart.invalid_quantity", err)
	case domainagg.CodeProductNotFound:
		return New(http.StatusNotFound, "product.not_found", err)
	case domainagg.CodeCartNotFound:
		return New(http.StatusNotFound, "cart.not_found", err)
	case domainagg.CodeValidation:
		return New(http.StatusBadRequest, "request.invalid", err)
	case domainagg.CodePersistenceFailure:
		return New(http.StatusServiceUnavailable, "cart.persistence_failure", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
