package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"vinyl_back_end/internal/auth"
	"vinyl_back_end/internal/cache"
	"vinyl_back_end/internal/cart"
	"vinyl_back_end/internal/catalog"
	"vinyl_back_end/internal/config"
	"vinyl_back_end/internal/database"
	"vinyl_back_end/internal/handlers"
	"vinyl_back_end/internal/routes"
	"vinyl_back_end/internal/session"
	"vinyl_back_end/internal/utils"
)

const shutdownTimeout = 10 * time.Second

func newRootCommand() *cobra.Command {
	var cfg config.Config

	root := &cobra.Command{
		Use:           "vinyl-server",
		Short:         "Vinyl storefront backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.Load()
			var err error
			cfg, err = config.FromEnv()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := database.Open(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer store.Close()
			log.Println("✅ Schema is up to date")
			return nil
		},
	})

	var reset bool
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled vinyl catalog",
		Long: `Insert the bundled vinyl catalog in a single transaction.

An already seeded catalog is left untouched unless --reset is given, which
replaces every product and empties all carts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seedCatalog(cmd.Context(), cfg, reset)
		},
	}
	seed.Flags().BoolVar(&reset, "reset", false, "replace existing products and clear carts")
	root.AddCommand(seed)

	return root
}

func seedCatalog(ctx context.Context, cfg config.Config, reset bool) error {
	store, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	products, err := catalog.SeedData()
	if err != nil {
		return err
	}

	cat := catalog.New(store, nil)
	if cfg.RedisHost != "" {
		if client, err := cache.Connect(ctx, cfg.RedisHost, cfg.RedisPassword); err != nil {
			log.Printf("⚠️ Redis unavailable, catalog cache not invalidated: %v", err)
		} else {
			defer client.Close()
			cat = catalog.New(store, cache.NewProductCache(client, cache.ProductCacheTTL))
		}
	}

	n, err := cat.Seed(ctx, products, reset)
	if err != nil {
		return err
	}
	if n == 0 {
		log.Println("⚠️ Catalog already seeded, nothing inserted (use --reset to replace)")
		return nil
	}
	log.Printf("✅ Inserted %d vinyls", n)
	return nil
}

func serve(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	store, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	// Redis is optional: without it the cart websocket is disabled and the
	// catalog is read straight from SQLite.
	var (
		events       *cache.CartEvents
		notifier     cart.Notifier
		productCache catalog.Cache
	)
	if cfg.RedisHost != "" {
		client, err := cache.Connect(ctx, cfg.RedisHost, cfg.RedisPassword)
		if err != nil {
			log.Printf("⚠️ Redis unavailable, cart sync disabled: %v", err)
		} else {
			defer client.Close()
			events = cache.NewCartEvents(client)
			notifier = events
			productCache = cache.NewProductCache(client, cache.ProductCacheTTL)
		}
	} else {
		log.Println("⚠️ REDIS_HOST not set, cart sync disabled")
	}

	manager := session.NewManager(store, cfg.SessionIdleTTL)
	go manager.RunSweeper(ctx, cfg.SessionSweepInterval)

	h := &handlers.Handler{
		Users:          auth.NewStore(store, utils.NewPasswordHasher(cfg.PasswordAlgo, cfg.BcryptCost)),
		Sessions:       session.NewCookieStore(manager, cfg.SessionSecret, cfg.CookieSecure),
		CookieName:     cfg.SessionCookieName,
		Cart:           cart.NewEngine(store, notifier),
		Catalog:        catalog.New(store, productCache),
		Events:         events,
		Auditor:        utils.NewAuditor(store),
		AllowedOrigins: cfg.CORSOrigins,
	}
	r := routes.NewRouter(h, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("🚀 Vinyl server listening on port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Println("✅ Server stopped")
	return nil
}
