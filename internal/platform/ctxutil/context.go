// Package ctxutil carries request-scoped identifiers through context.Context.
package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type traceDataKey struct{}
type cartDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

// CartData is the cart the request's cookie or header points at.
type CartData struct {
	CartID uuid.UUID
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	td, _ := ctx.Value(traceDataKey{}).(*TraceData)
	return td
}

func WithCartData(ctx context.Context, cd *CartData) context.Context {
	return context.WithValue(ctx, cartDataKey{}, cd)
}

func GetCartData(ctx context.Context) *CartData {
	cd, _ := ctx.Value(cartDataKey{}).(*CartData)
	return cd
}

// LogFields returns the identifiers present in ctx as logger key/value pairs.
func LogFields(ctx context.Context) []interface{} {
	var fields []interface{}
	if td := GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			fields = append(fields, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			fields = append(fields, "request_id", td.RequestID)
		}
	}
	if cd := GetCartData(ctx); cd != nil && cd.CartID != uuid.Nil {
		fields = append(fields, "cart_id", cd.CartID.String())
	}
	return fields
}
