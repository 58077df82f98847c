package apierr

import (
	"errors"
	"net/http"
	"testing"

	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
)

func TestFromDomain(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domainagg.NewError(domainagg.CodeInvalidQuantity, "op", "quantity must be positive", nil), http.StatusUnprocessableEntity, "cart.invalid_quantity"},
		{domainagg.NewError(domainagg.CodeProductNotFound, "op", "missing", nil), http.StatusNotFound, "product.not_found"},
		{domainagg.NewError(domainagg.CodeCartNotFound, "op", "missing", nil), http.StatusNotFound, "cart.not_found"},
		{domainagg.NewError(domainagg.CodePersistenceFailure, "op", "commit failed", nil), http.StatusServiceUnavailable, "cart.persistence_failure"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		got := FromDomain(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("FromDomain(%v): want=%d/%s got=%d/%s", tc.err, tc.status, tc.code, got.Status, got.Code)
		}
	}
	if FromDomain(nil) != nil {
		t.Fatalf("FromDomain(nil): want nil")
	}
	passthrough := New(http.StatusTeapot, "teapot", nil)
	if got := FromDomain(passthrough); got != passthrough {
		t.Fatalf("api errors should pass through unchanged")
	}
}
