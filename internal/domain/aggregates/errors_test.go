package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := NewError(CodeCartNotFound, "Cart.AddItem", "cart 42 not found", nil)
	if !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("errors.Is cart not found: want=true")
	}
	if errors.Is(err, ErrProductNotFound) {
		t.Fatalf("errors.Is product not found: want=false")
	}
	wrapped := fmt.Errorf("handler: %w", err)
	if !errors.Is(wrapped, ErrCartNotFound) {
		t.Fatalf("errors.Is through fmt wrap: want=true")
	}
}

func TestCodeOfReturnsOutermostCode(t *testing.T) {
	inner := NewError(CodeConflict, "Cart.AddItem", "version moved", nil)
	outer := Wrap(CodePersistenceFailure, "Cart.AddItem", inner)
	if got := CodeOf(outer); got != CodePersistenceFailure {
		t.Fatalf("code: want=%s got=%s", CodePersistenceFailure, got)
	}
	if !errors.Is(outer, ErrPersistenceFailure) {
		t.Fatalf("outer should match persistence failure")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
}

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeInvalidQuantity, "Cart.AddItem", "quantity must be positive", nil)
	if got := err.Error(); got != "Cart.AddItem: quantity must be positive (invalid_quantity)" {
		t.Fatalf("format: got=%q", got)
	}
	if got := (&Error{Code: CodeInternal}).Error(); got != "internal" {
		t.Fatalf("bare format: got=%q", got)
	}
}

func TestIsCallerError(t *testing.T) {
	if !IsCallerError(NewError(CodeProductNotFound, "", "", nil)) {
		t.Fatalf("product not found is a caller error")
	}
	if IsCallerError(NewError(CodePersistenceFailure, "", "", nil)) {
		t.Fatalf("persistence failure is not a caller error")
	}
}
