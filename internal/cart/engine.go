// Package cart manages per-user cart line items against the product catalog.
//
// Every operation takes the authenticated user id explicitly; rows of other
// users are never visible.
package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/database"
	"vinyl_back_end/internal/models"
)

// Cart change events published after a successful mutation.
const (
	EventUpdated = "updated"
	EventCleared = "cleared"
)

// Notifier is told about committed cart changes.
type Notifier interface {
	CartChanged(ctx context.Context, userID int64, event string) error
}

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 999

type Engine struct {
	db       *database.Store
	notifier Notifier
}

// NewEngine builds an engine. notifier may be nil.
func NewEngine(db *database.Store, notifier Notifier) *Engine {
	return &Engine{db: db, notifier: notifier}
}

// AddItem adds delta units of productID to the user's cart, merging into the
// existing line for that product if there is one. The lookup and the write
// share one immediate transaction, so concurrent adds cannot lose updates.
func (e *Engine) AddItem(ctx context.Context, userID, productID int64, delta int) error {
	if productID <= 0 {
		return apperr.Validation("Invalid product id")
	}
	if delta <= 0 || delta > MaxLineQuantity {
		return apperr.Validation("Invalid quantity")
	}

	err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.StmtContext(ctx, e.db.Stmt.ProductExists).QueryRowContext(ctx, productID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("Product not found")
		}
		if err != nil {
			return err
		}

		var itemID, quantity int64
		err = tx.StmtContext(ctx, e.db.Stmt.FindCartItem).QueryRowContext(ctx, userID, productID).Scan(&itemID, &quantity)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.StmtContext(ctx, e.db.Stmt.InsertCartItem).ExecContext(ctx, userID, productID, delta)
		case err == nil:
			if quantity+int64(delta) > MaxLineQuantity {
				return apperr.Validation(fmt.Sprintf("Quantity limit is %d per item", MaxLineQuantity))
			}
			_, err = tx.StmtContext(ctx, e.db.Stmt.IncrementCartItem).ExecContext(ctx, delta, itemID)
		}
		return err
	})
	if err != nil {
		return internalUnlessTagged("Failed to add to cart", err)
	}

	e.notify(ctx, userID, EventUpdated)
	return nil
}

// RemoveItem deletes one line. A line that does not exist and a line owned by
// someone else are both NotFound.
func (e *Engine) RemoveItem(ctx context.Context, userID, itemID int64) error {
	if itemID <= 0 {
		return apperr.Validation("Invalid item ID")
	}

	res, err := e.db.Stmt.DeleteCartItem.ExecContext(ctx, itemID, userID)
	if err != nil {
		return apperr.Internal("Failed while trying to delete item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal("Failed while trying to delete item", err)
	}
	if n == 0 {
		return apperr.NotFound("Item not found")
	}

	e.notify(ctx, userID, EventUpdated)
	return nil
}

// ClearCart deletes every line of the user's cart. Clearing an empty cart
// succeeds.
func (e *Engine) ClearCart(ctx context.Context, userID int64) error {
	if _, err := e.db.Stmt.ClearCart.ExecContext(ctx, userID); err != nil {
		return apperr.Internal("Failed while trying to delete all item", err)
	}
	e.notify(ctx, userID, EventCleared)
	return nil
}

// ListCart returns the user's lines ordered by cart item id. Each range over
// the sequence runs a fresh query. The sequence holds a database connection
// while it is being ranged over, so callers must not issue other queries
// from inside the loop.
func (e *Engine) ListCart(ctx context.Context, userID int64) iter.Seq2[models.CartLine, error] {
	return func(yield func(models.CartLine, error) bool) {
		rows, err := e.db.Stmt.ListCart.QueryContext(ctx, userID)
		if err != nil {
			yield(models.CartLine{}, apperr.Internal("Failed to fetch cart items", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var line models.CartLine
			if err := rows.Scan(&line.CartItemID, &line.Quantity, &line.Title, &line.Artist, &line.Price); err != nil {
				yield(models.CartLine{}, apperr.Internal("Failed to fetch cart items", err))
				return
			}
			if !yield(line, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.CartLine{}, apperr.Internal("Failed to fetch cart items", err))
		}
	}
}

// Lines drains ListCart into a slice. An empty cart is an empty, non-nil
// slice.
func (e *Engine) Lines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	for line, err := range e.ListCart(ctx, userID) {
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// CartCount sums the quantities of the user's lines; an empty cart is 0.
func (e *Engine) CartCount(ctx context.Context, userID int64) (int, error) {
	var total int
	if err := e.db.Stmt.CartCount.QueryRowContext(ctx, userID).Scan(&total); err != nil {
		return 0, apperr.Internal("Failed to get total cart items", err)
	}
	return total, nil
}

func (e *Engine) notify(ctx context.Context, userID int64, event string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.CartChanged(ctx, userID, event); err != nil {
		log.Printf("⚠️ Failed to publish cart event for user %d: %v", userID, err)
	}
}

func internalUnlessTagged(msg string, err error) error {
	var tagged *apperr.Error
	if errors.As(err, &tagged) {
		return tagged
	}
	return apperr.Internal(msg, err)
}
