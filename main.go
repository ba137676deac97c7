package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/princinho/smartshop/authbridge"
	"github.com/princinho/smartshop/config"
	"github.com/princinho/smartshop/controllers"
	"github.com/princinho/smartshop/database"
	"github.com/princinho/smartshop/services"
	"github.com/princinho/smartshop/store"
	"github.com/princinho/smartshop/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	client, err := database.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Fatal(err)
	}
	db := client.Database(cfg.Mongo.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatal(err)
	}
	st := store.NewMongoStore(db)

	auth, err := newAuthProvider(ctx, cfg, st)
	if err != nil {
		log.Fatal(err)
	}

	uploader, err := utils.NewImageUploader(ctx, cfg.Storage)
	if err != nil {
		log.Fatal(err)
	}
	if uploader == nil {
		log.Println("INFO: STORAGE_DRIVER not set, product image uploads are disabled")
	}

	app := &controllers.App{
		Config:    cfg,
		Auth:      auth,
		Flash:     utils.NewFlashStore(cfg.SessionSecret, cfg.CookieSecure, cfg.CookieDomain),
		Users:     st,
		Catalog:   services.NewCatalogService(st),
		Cart:      services.NewCartService(st, st),
		Reviews:   services.NewReviewService(st),
		Admin:     services.NewAdminService(st, uploader, utils.NewImageValidator(cfg.Storage)),
		Checkout:  services.NewCheckoutService(st, st, st),
		Dashboard: services.NewDashboardService(st, st, st),
		Ping: func(ctx context.Context) error {
			return database.Ping(ctx, client)
		},
	}

	r := gin.New()

	allowedOrigins := map[string]bool{}
	for _, origin := range cfg.AllowedOrigins {
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}
	log.Printf("Allowed origins: %v", allowedOrigins)
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	controllers.RegisterRoutes(r, app)

	srv := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      r,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		log.Printf("INFO: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown: %v", err)
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		log.Printf("ERROR: mongo disconnect: %v", err)
	}
}

func newAuthProvider(ctx context.Context, cfg *config.Config, creds store.CredentialStore) (authbridge.Provider, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderLocal:
		p := authbridge.NewLocalProvider(creds, cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
		if cfg.AdminPassword != "" {
			if err := p.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
				return nil, err
			}
		}
		return p, nil
	default:
		return authbridge.NewSupabaseProvider(cfg.Auth.SupabaseURL, cfg.Auth.SupabaseKey, cfg.Auth.SupabaseJWTSecret), nil
	}
}
