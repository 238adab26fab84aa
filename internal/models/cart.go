package models

// CartItem is one product's line in a user's cart. At most one row exists per
// (UserID, ProductID).
type CartItem struct {
	ID        int64 `json:"id"`
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CartLine is a cart item joined with its product, as shown on the cart page.
type CartLine struct {
	CartItemID int64   `json:"cartItemId"`
	Quantity   int     `json:"quantity"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Price      float64 `json:"price"`
}
