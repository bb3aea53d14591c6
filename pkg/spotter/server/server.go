// Package server wires the spotter components into an HTTP application.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/spotter/pkg/spotter/admin"
	"github.com/mikepea/spotter/pkg/spotter/auth"
	"github.com/mikepea/spotter/pkg/spotter/config"
	"github.com/mikepea/spotter/pkg/spotter/database"
	"github.com/mikepea/spotter/pkg/spotter/events"
	"github.com/mikepea/spotter/pkg/spotter/identity"
	"github.com/mikepea/spotter/pkg/spotter/logging"
	"github.com/mikepea/spotter/pkg/spotter/mediator"
	"github.com/mikepea/spotter/pkg/spotter/members"
	"github.com/mikepea/spotter/pkg/spotter/metrics"
	"github.com/mikepea/spotter/pkg/spotter/models"
	"github.com/mikepea/spotter/pkg/spotter/workouts"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// App holds the wired components and the gin router.
type App struct {
	Router   *gin.Engine
	Members  *members.Directory
	Events   *events.Manager
	Workouts *workouts.Aggregator
	Signer   *auth.Signer

	logger  *slog.Logger
	origins []string
}

// New builds the application on top of an opened, migrated database.
func New(db *gorm.DB, cfg config.Config, logger *slog.Logger) *App {
	store := database.NewStore(db)
	eventManager := events.NewManager(store)
	directory := members.NewDirectory(store, eventManager)
	aggregator := workouts.NewAggregator(store, directory, cfg.ProgressConcurrency)
	signer := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	med := mediator.New(identity.NewResolver(signer, directory))

	app := &App{
		Members:  directory,
		Events:   eventManager,
		Workouts: aggregator,
		Signer:   signer,
		logger:   logger,
		origins:  cfg.CORSOrigins,
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(logger))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "spotter",
			})
		})

		// Auth routes (public, except /me)
		auth.NewHandler(directory, signer).RegisterRoutes(api.Group("/auth"), med.Authenticate())

		// Everything else needs a resolved identity; access is decided per operation
		protected := api.Group("", med.Authenticate())

		events.NewHandler(eventManager, med).RegisterRoutes(protected.Group("/events"))
		workouts.NewHandler(aggregator, med).RegisterRoutes(protected.Group("/workouts"))
		admin.NewHandler(directory, med).RegisterRoutes(protected.Group("/admin"))
	}

	app.Router = r
	return app
}

// Handler returns the router wrapped in CORS handling for the web and mobile clients.
func (a *App) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: a.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", logging.HeaderRequestID},
		ExposedHeaders: []string{logging.HeaderRequestID},
	})
	return c.Handler(a.Router)
}

// HTTPServer returns an http.Server for the application.
func (a *App) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// EnsureAdmin creates the default admin account when no admin exists.
func (a *App) EnsureAdmin(ctx context.Context, email, password string) error {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	created, err := a.Members.EnsureAdmin(ctx, &models.User{
		Email:        email,
		Name:         "Admin",
		PasswordHash: hashedPassword,
	})
	if err != nil {
		return err
	}
	if created {
		a.logger.Warn("created default admin user; change its password", slog.String("email", email))
	}
	return nil
}
