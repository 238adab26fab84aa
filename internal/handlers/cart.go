package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/middleware"
)

// Cart routes sit behind middleware.RequireAuth, so the user id is always
// present; the ok check only guards against a miswired router.
func requireUser(c *gin.Context) (int64, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, apperr.Unauthorized())
	}
	return userID, ok
}

// 🟢 POST /api/cart/add
func (h *Handler) AddToCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var input struct {
		ProductID json.RawMessage `json:"productId"`
		Quantity  *int            `json:"quantity"`
	}
	if c.ContentType() == binding.MIMEPOSTForm {
		input.ProductID, _ = json.Marshal(c.PostForm("productId"))
		if q := strings.TrimSpace(c.PostForm("quantity")); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil {
				respondError(c, apperr.Validation("Invalid quantity"))
				return
			}
			input.Quantity = &n
		}
	} else if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, apperr.Validation("Invalid request body"))
		return
	}

	productID, err := parseID(input.ProductID)
	if err != nil {
		respondError(c, apperr.Validation("Invalid product id"))
		return
	}
	quantity := 1
	if input.Quantity != nil {
		quantity = *input.Quantity
	}

	if err := h.Cart.AddItem(c.Request.Context(), userID, productID, quantity); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Added to cart"})
}

// 🔢 GET /api/cart/cart-count
func (h *Handler) CartCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	total, err := h.Cart.CartCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"totalItems": total})
}

// 🛒 GET /api/cart
func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	lines, err := h.Cart.Lines(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": lines})
}

// ❌ DELETE /api/cart/:itemId
func (h *Handler) RemoveFromCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	itemID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
	if err != nil {
		respondError(c, apperr.Validation("Invalid item ID"))
		return
	}

	if err := h.Cart.RemoveItem(c.Request.Context(), userID, itemID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// 🧹 DELETE /api/cart/all
func (h *Handler) ClearCart(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.Cart.ClearCart(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// parseID accepts a JSON integer or a string holding one. Form posts arrive
// here as strings.
func parseID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, strconv.ErrSyntax
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(text)
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
