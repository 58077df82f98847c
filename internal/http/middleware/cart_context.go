package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cart-backend/internal/platform/ctxutil"
)

const (
	CartCookieName = "cart_id"
	HeaderCartID   = "X-Cart-Id"

	// ctxKeyCartIDRaw holds the raw value when it did not parse as a uuid.
	ctxKeyCartIDRaw = "cart_id_raw"
)

// AttachCartContext resolves the caller's cart id from the cart_id cookie,
// falling back to the X-Cart-Id header.
func AttachCartContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if v, err := c.Cookie(CartCookieName); err == nil {
			raw = strings.TrimSpace(v)
		}
		if raw == "" {
			raw = strings.TrimSpace(c.GetHeader(HeaderCartID))
		}
		if raw != "" {
			if id, err := uuid.Parse(raw); err == nil && id != uuid.Nil {
				ctx := ctxutil.WithCartData(c.Request.Context(), &ctxutil.CartData{CartID: id})
				c.Request = c.Request.WithContext(ctx)
			} else {
				c.Set(ctxKeyCartIDRaw, raw)
			}
		}
		c.Next()
	}
}

// CartIDFromContext reports the resolved cart id, or the raw value when the
// caller sent something that is not a uuid.
func CartIDFromContext(c *gin.Context) (id uuid.UUID, raw string, ok bool) {
	if cd := ctxutil.GetCartData(c.Request.Context()); cd != nil && cd.CartID != uuid.Nil {
		return cd.CartID, cd.CartID.String(), true
	}
	return uuid.Nil, c.GetString(ctxKeyCartIDRaw), false
}
