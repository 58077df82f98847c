package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cart-backend/internal/catalog"
	domainagg "github.com/yungbote/cart-backend/internal/domain/aggregates"
	httpMW "github.com/yungbote/cart-backend/internal/http/middleware"
	"github.com/yungbote/cart-backend/internal/http/response"
	"github.com/yungbote/cart-backend/internal/platform/logger"
	"github.com/yungbote/cart-backend/internal/services"
)

const cartCookieMaxAge = 7 * 24 * time.Hour

type CartHandler struct {
	log     *logger.Logger
	carts   services.CartService
	catalog catalog.Lookup
	secure  bool
}

// NewCartHandler builds the cart endpoints. catalog is used to validate the
// product before a cart is created and to render product names.
func NewCartHandler(log *logger.Logger, carts services.CartService, lookup catalog.Lookup, secureCookie bool) *CartHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CartHandler{log: log.With("handler", "CartHandler"), carts: carts, catalog: lookup, secure: secureCookie}
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartLineJSON struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	UnitPrice  string    `json:"unit_price"`
	TotalPrice string    `json:"total_price"`
}

type cartJSON struct {
	ID                uuid.UUID      `json:"id"`
	Products          []cartLineJSON `json:"products"`
	TotalPrice        string         `json:"total_price"`
	Abandoned         bool           `json:"abandoned"`
	LastInteractionAt time.Time      `json:"last_interaction_at"`
}

// POST /api/cart
func (h *CartHandler) Create(c *gin.Context) {
	productID, qty, ok := h.bindItem(c)
	if !ok {
		return
	}

	var existing *uuid.UUID
	if id, _, ok := httpMW.CartIDFromContext(c); ok {
		existing = &id
	}
	cart, created, err := h.carts.FindOrCreate(c.Request.Context(), existing)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}

	// The cookie is only issued once the cart holds the item. A failed add
	// leaves at most an empty cart behind, which the idle sweep removes.
	if _, err := h.carts.AddItem(c.Request.Context(), cart.ID, productID, qty); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	h.setCartCookie(c, cart.ID)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondSnapshot(c, status, cart.ID)
}

// GET /api/cart
func (h *CartHandler) Show(c *gin.Context) {
	cartID, ok := h.requireCartID(c)
	if !ok {
		return
	}
	h.respondSnapshot(c, http.StatusOK, cartID)
}

// POST /api/cart/add_item
func (h *CartHandler) AddItem(c *gin.Context) {
	cartID, ok := h.requireCartID(c)
	if !ok {
		return
	}
	productID, qty, ok := h.bindItem(c)
	if !ok {
		return
	}
	if _, err := h.carts.AddItem(c.Request.Context(), cartID, productID, qty); err != nil {
		h.respondCartError(c, cartID, err)
		return
	}
	h.respondSnapshot(c, http.StatusOK, cartID)
}

// DELETE /api/cart/:product_id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	cartID, ok := h.requireCartID(c)
	if !ok {
		return
	}
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "product.invalid_id", err)
		return
	}
	removed, err := h.carts.RemoveItem(c.Request.Context(), cartID, productID)
	if err != nil {
		h.respondCartError(c, cartID, err)
		return
	}
	if !removed {
		response.RespondError(c, http.StatusNotFound, "product.not_in_cart", fmt.Errorf("product %s not found in cart", productID))
		return
	}
	h.respondSnapshot(c, http.StatusOK, cartID)
}

// bindItem validates the body and the product before any cart is touched.
func (h *CartHandler) bindItem(c *gin.Context) (uuid.UUID, int, bool) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "request.invalid_body", err)
		return uuid.Nil, 0, false
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "product.invalid_id", err)
		return uuid.Nil, 0, false
	}
	if req.Quantity <= 0 {
		response.RespondError(c, http.StatusUnprocessableEntity, "cart.invalid_quantity", errors.New("quantity must be greater than zero"))
		return uuid.Nil, 0, false
	}
	if h.catalog != nil {
		if _, err := h.catalog.ResolveProduct(c.Request.Context(), productID); err != nil {
			if domainagg.IsCode(err, domainagg.CodeProductNotFound) {
				response.RespondError(c, http.StatusNotFound, "product.not_found", fmt.Errorf("product %s not found", productID))
				return uuid.Nil, 0, false
			}
			response.RespondDomainError(c, err)
			return uuid.Nil, 0, false
		}
	}
	return productID, req.Quantity, true
}

func (h *CartHandler) requireCartID(c *gin.Context) (uuid.UUID, bool) {
	id, raw, ok := httpMW.CartIDFromContext(c)
	if ok {
		return id, true
	}
	if raw != "" {
		response.RespondError(c, http.StatusBadRequest, "cart.invalid_id", fmt.Errorf("cart id %q is not a uuid", raw))
		return uuid.Nil, false
	}
	response.RespondError(c, http.StatusUnprocessableEntity, "cart.missing_id", errors.New("no cart id sent"))
	return uuid.Nil, false
}

func (h *CartHandler) respondSnapshot(c *gin.Context, status int, cartID uuid.UUID) {
	snap, err := h.carts.GetCart(c.Request.Context(), cartID)
	if err != nil {
		h.respondCartError(c, cartID, err)
		return
	}
	c.JSON(status, h.render(c, snap))
}

func (h *CartHandler) respondCartError(c *gin.Context, cartID uuid.UUID, err error) {
	if domainagg.IsCode(err, domainagg.CodeCartNotFound) {
		response.RespondError(c, http.StatusNotFound, "cart.not_found", fmt.Errorf("cart %s not found", cartID))
		return
	}
	response.RespondDomainError(c, err)
}

func (h *CartHandler) render(c *gin.Context, snap domainagg.CartSnapshot) cartJSON {
	out := cartJSON{
		ID:                snap.ID,
		Products:          make([]cartLineJSON, 0, len(snap.Lines)),
		TotalPrice:        snap.TotalPrice.StringFixed(2),
		Abandoned:         snap.Abandoned,
		LastInteractionAt: snap.LastInteractionAt,
	}
	for _, l := range snap.Lines {
		out.Products = append(out.Products, cartLineJSON{
			ID:         l.ProductID,
			Name:       h.productName(c, l.ProductID),
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice.StringFixed(2),
			TotalPrice: l.TotalPrice.StringFixed(2),
		})
	}
	return out
}

func (h *CartHandler) productName(c *gin.Context, productID uuid.UUID) string {
	if h.catalog == nil {
		return ""
	}
	p, err := h.catalog.ResolveProduct(c.Request.Context(), productID)
	if err != nil || p == nil {
		h.log.Debug("product name unavailable", "product_id", productID, "error", err)
		return ""
	}
	return p.Name
}

func (h *CartHandler) setCartCookie(c *gin.Context, cartID uuid.UUID) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(httpMW.CartCookieName, cartID.String(), int(cartCookieMaxAge.Seconds()), "/", "", h.secure, true)
	c.Header(httpMW.HeaderCartID, cartID.String())
}
