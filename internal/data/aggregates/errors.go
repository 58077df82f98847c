package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
)

var (
	// ErrValidation marks a cart write rejected before it reached the store.
	ErrValidation = errors.New("cart validation")
	// ErrConflict marks a cart row that changed under a guarded write.
	ErrConflict = errors.New("cart conflict")
	// ErrRetryable marks a transient store failure worth another attempt.
	ErrRetryable = errors.New("cart retryable")
)

// Check constraints whose violation is a caller error rather than a bug.
var constraintCodes = map[string]domainagg.ErrorCode{
	"chk_line_item_quantity": domainagg.CodeInvalidQuantity,
}

// SQLSTATE classes seen from the cart and line_item tables.
var pgStateCodes = map[string]domainagg.ErrorCode{
	"23503": domainagg.CodeCartNotFound, // line_item.cart_id lost its cart to a concurrent removal
	"23505": domainagg.CodeConflict,     // concurrent first add of the same product
	"40001": domainagg.CodeRetryable,
	"40P01": domainagg.CodeRetryable,
	"55P03": domainagg.CodeRetryable,
	"57014": domainagg.CodeRetryable,
}

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// MapError maps store and driver failures into cart error codes. Errors that
// already carry a code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrConflict):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, ErrRetryable):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeCartNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := constraintCodes[pgErr.ConstraintName]; ok {
			return domainagg.Wrap(code, op, err)
		}
		if code, ok := pgStateCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return domainagg.Wrap(code, op, err)
		}
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	// sqlite only exposes text.
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	for name, code := range constraintCodes {
		if strings.Contains(msg, "check constraint failed: "+name) {
			return domainagg.Wrap(code, op, err)
		}
	}
	switch {
	case strings.Contains(msg, "foreign key constraint failed"),
		strings.Contains(msg, "violates foreign key constraint"):
		return domainagg.Wrap(domainagg.CodeCartNotFound, op, err)
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "timeout"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}
