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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/config"
	"github.com/craftwerk/portfolio-backend/internal/events"
	"github.com/craftwerk/portfolio-backend/internal/handlers"
	"github.com/craftwerk/portfolio-backend/internal/hash"
	"github.com/craftwerk/portfolio-backend/internal/logging"
	"github.com/craftwerk/portfolio-backend/internal/models"
	"github.com/craftwerk/portfolio-backend/internal/ratelimit"
	"github.com/craftwerk/portfolio-backend/internal/rbac"
	"github.com/craftwerk/portfolio-backend/internal/search"
	"github.com/craftwerk/portfolio-backend/internal/session"
	"github.com/craftwerk/portfolio-backend/internal/token"
	httpserver "github.com/craftwerk/portfolio-backend/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	resolver := &rbac.Resolver{DB: db}
	if err := seed(db, resolver, configuration); err != nil {
		log.Fatalf("seed failed: %v", err)
	}

	tokens := &token.Service{
		DB:         db,
		Secret:     []byte(configuration.JWT_SECRET),
		AccessTTL:  configuration.ACCESS_TTL,
		RefreshTTL: configuration.REFRESH_TTL,
	}

	loginLimiter := ratelimit.New(configuration.LOGIN_RATE_MAX, configuration.LOGIN_RATE_WINDOW)
	refreshLimiter := ratelimit.New(configuration.REFRESH_RATE_MAX, configuration.REFRESH_RATE_WINDOW)

	producer := events.NewProducer(configuration.KAFKA_ADDRESS)

	var projectIndex search.ProjectIndex
	if configuration.ES_URL != "" {
		esClient, err := search.NewClient(configuration)
		if err != nil {
			log.Printf("elasticsearch unavailable, search disabled: %v", err)
		} else {
			projectIndex = &search.ESIndex{ES: esClient}
		}
	}

	cookies := session.CookieFactory{Production: configuration.IsProduction()}
	sessionMW := &session.Middleware{Tokens: tokens, Resolver: resolver}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:      db,
		Session: sessionMW,
		AuthHandler: &handlers.AuthHandler{
			DB:             db,
			Tokens:         tokens,
			Cookies:        cookies,
			LoginLimiter:   loginLimiter,
			RefreshLimiter: refreshLimiter,
			Producer:       producer,
		},
		AboutHandler:      &handlers.AboutHandler{DB: db},
		ProjectHandler:    &handlers.ProjectHandler{DB: db, Producer: producer, Index: projectIndex},
		ExperienceHandler: &handlers.ExperienceHandler{DB: db},
		PublicHandler:     &handlers.PublicHandler{DB: db},
		SearchHandler:     &handlers.SearchHandler{Index: projectIndex},
		RoleHandler:       &handlers.RoleHandler{DB: db, Resolver: resolver},
		CORSOrigins:       configuration.CORS_ORIGINS,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	loginLimiter.Close()
	refreshLimiter.Close()

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	log.Println("shutdown complete")
}

// seed syncs the permission catalog, reconciles ADMIN grants and
// creates the bootstrap admin account when configured and absent.
func seed(db *gorm.DB, resolver *rbac.Resolver, cfg *config.Config) error {
	ctx := context.Background()

	if err := resolver.SyncPermissions(ctx, rbac.Catalog); err != nil {
		return err
	}

	if cfg.ADMIN_EMAIL == "" || cfg.ADMIN_PASSWORD == "" {
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", cfg.ADMIN_EMAIL).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	pwHash, err := hash.HashPassword(cfg.ADMIN_PASSWORD)
	if err != nil {
		return err
	}
	username := cfg.ADMIN_USERNAME
	if username == "" {
		username = "admin"
	}
	admin := models.User{
		Email:        cfg.ADMIN_EMAIL,
		Username:     username,
		PasswordHash: pwHash,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	return resolver.AssignRole(ctx, admin.ID, rbac.AdminRole)
}
