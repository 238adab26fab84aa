// Package catalog reads and seeds the vinyl product catalog.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"vinyl_back_end/internal/apperr"
	"vinyl_back_end/internal/database"
	"vinyl_back_end/internal/models"
)

//go:embed vinyls.yaml
var seedYAML []byte

// Cache stores catalog query results. Implementations report a miss as
// ok=false.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) error
}

// Filter narrows a product listing. Empty fields do not filter; set fields
// combine with AND.
type Filter struct {
	Genre  string
	Search string
}

func (f Filter) cacheKey() string {
	return "products:" + url.Values{"genre": {f.Genre}, "search": {f.Search}}.Encode()
}

type Catalog struct {
	db    *database.Store
	cache Cache
}

// New builds a catalog. cache may be nil.
func New(db *database.Store, cache Cache) *Catalog {
	return &Catalog{db: db, cache: cache}
}

// Products lists products matching f ordered by id. Search is a
// case-insensitive substring match on title, artist or genre.
func (c *Catalog) Products(ctx context.Context, f Filter) ([]models.Product, error) {
	f.Genre = strings.TrimSpace(f.Genre)
	f.Search = strings.TrimSpace(f.Search)

	products := []models.Product{}
	if c.cached(ctx, f.cacheKey(), &products) {
		return products, nil
	}

	query := `SELECT id, title, artist, price, image, year, genre, stock FROM products`
	var (
		where []string
		args  []any
	)
	if f.Genre != "" {
		where = append(where, `genre = ?`)
		args = append(args, f.Genre)
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR artist LIKE ? ESCAPE '\' OR genre LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY id ASC`

	rows, err := c.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch products", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Internal("Failed to fetch products", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("Failed to fetch products", err)
	}

	c.store(ctx, f.cacheKey(), products)
	return products, nil
}

// Genres lists the distinct non-empty genres in alphabetical order.
func (c *Catalog) Genres(ctx context.Context) ([]string, error) {
	genres := []string{}
	if c.cached(ctx, "genres", &genres) {
		return genres, nil
	}

	rows, err := c.db.DB.QueryContext(ctx,
		`SELECT DISTINCT genre FROM products WHERE genre IS NOT NULL AND genre <> '' ORDER BY genre`)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch genres", err)
	}
	defer rows.Close()

	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, apperr.Internal("Failed to fetch genres", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("Failed to fetch genres", err)
	}

	c.store(ctx, "genres", genres)
	return genres, nil
}

// SeedData returns the bundled vinyl catalog.
func SeedData() ([]models.Product, error) {
	var products []models.Product
	if err := yaml.Unmarshal(seedYAML, &products); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	for i, p := range products {
		if p.Title == "" || p.Artist == "" || p.Image == "" || p.Price < 0 {
			return nil, fmt.Errorf("seed catalog entry %d is incomplete", i)
		}
	}
	return products, nil
}

// Seed inserts products in one transaction and returns how many were added.
// A catalog that already has products is left alone unless reset is set, in
// which case products and every cart line referencing them are replaced.
func (c *Catalog) Seed(ctx context.Context, products []models.Product, reset bool) (int, error) {
	inserted := 0
	err := c.db.WithTx(ctx, func(tx *sql.Tx) error {
		if reset {
			for _, stmt := range []string{
				`DELETE FROM cart_items`,
				`DELETE FROM products`,
				`DELETE FROM sqlite_sequence WHERE name = 'products'`,
			} {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("reset catalog: %w", err)
				}
			}
		} else {
			var count int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
		}

		insert, err := tx.PrepareContext(ctx, `
			INSERT INTO products (title, artist, price, image, year, genre, stock)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer insert.Close()

		for _, p := range products {
			if _, err := insert.ExecContext(ctx, p.Title, p.Artist, p.Price, p.Image, p.Year, p.Genre, p.Stock); err != nil {
				return fmt.Errorf("insert %q: %w", p.Title, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Internal("Failed to seed catalog", err)
	}

	if inserted > 0 && c.cache != nil {
		if err := c.cache.Invalidate(ctx); err != nil {
			log.Printf("⚠️ Failed to invalidate catalog cache: %v", err)
		}
	}
	return inserted, nil
}

func (c *Catalog) cached(ctx context.Context, key string, dst any) bool {
	if c.cache == nil {
		return false
	}
	ok, err := c.cache.Get(ctx, key, dst)
	if err != nil {
		log.Printf("⚠️ Catalog cache read failed: %v", err)
		return false
	}
	return ok
}

func (c *Catalog) store(ctx context.Context, key string, value any) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, value); err != nil {
		log.Printf("⚠️ Catalog cache write failed: %v", err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (models.Product, error) {
	var (
		p     models.Product
		year  sql.NullInt64
		genre sql.NullString
		stock sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.Title, &p.Artist, &p.Price, &p.Image, &year, &genre, &stock); err != nil {
		return models.Product{}, err
	}
	if year.Valid {
		y := int(year.Int64)
		p.Year = &y
	}
	if genre.Valid {
		g := genre.String
		p.Genre = &g
	}
	if stock.Valid {
		st := int(stock.Int64)
		p.Stock = &st
	}
	return p, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
