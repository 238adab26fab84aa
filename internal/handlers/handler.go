package handlers

import (
	"vinyl_back_end/internal/auth"
	"vinyl_back_end/internal/cache"
	"vinyl_back_end/internal/cart"
	"vinyl_back_end/internal/catalog"
	"vinyl_back_end/internal/session"
	"vinyl_back_end/internal/utils"
)

// Handler serves the HTTP API. Events is nil when Redis is not configured.
type Handler struct {
	Users      *auth.Store
	Sessions   *session.CookieStore
	CookieName string
	Cart       *cart.Engine
	Catalog    *catalog.Catalog
	Events     *cache.CartEvents
	Auditor    *utils.Auditor

	// AllowedOrigins restricts the cart websocket handshake; empty means
	// same-origin only.
	AllowedOrigins []string
}
