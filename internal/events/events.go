package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ItemAdded   Type = "cart.item_added"
	ItemRemoved Type = "cart.item_removed"
	Abandoned   Type = "cart.abandoned"
	Removed     Type = "cart.removed"
)

// Event is published after the cart write it describes has committed.
type Event struct {
	Type       Type       `json:"type"`
	CartID     uuid.UUID  `json:"cart_id"`
	ProductID  *uuid.UUID `json:"product_id,omitempty"`
	Quantity   *int       `json:"quantity,omitempty"`
	TotalPrice string     `json:"total_price,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type noop struct{}

// Noop drops every event.
func Noop() Publisher { return noop{} }

func (noop) Publish(context.Context, Event) error { return nil }
func (noop) Close() error                         { return nil }
