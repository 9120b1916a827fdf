package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/platemate/server/api/rest"
	"github.com/platemate/server/audit"
	"github.com/platemate/server/cache"
	"github.com/platemate/server/config"
	dbadapter "github.com/platemate/server/db"
	"github.com/platemate/server/friends"
	mw "github.com/platemate/server/middleware"
	"github.com/platemate/server/model"
	"github.com/platemate/server/pipeline"
	"github.com/platemate/server/places"
	"github.com/platemate/server/ratings"
	"github.com/platemate/server/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Places.APIKey == "" {
		logger.Warn("places.api_key is not set; place lookups will fail")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	if err := model.SeedFriendStatuses(db); err != nil {
		log.Fatalf("db seed: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cfg.Cache)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Services ----
	placesClient := places.NewGoogleClient(cfg.Places)
	friendsSvc := friends.NewService(db, logger)
	ratingsSvc := ratings.NewService(db, friendsSvc, placesClient, logger)

	// ---- Account deletion pipeline ----
	consumer := pipeline.NewConsumer(db, pubsub, friendsSvc, ratingsSvc, logger)
	if err := consumer.Start(context.Background()); err != nil {
		log.Fatalf("pipeline: %v", err)
	}
	defer consumer.Stop()

	// ---- Periodic Scheduler Tasks ----
	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
	sched.AddTicker("audit_retention", 12*time.Hour, func() {
		deleted, err := auditSvc.PurgeOlderThan(time.Now().Add(-retention))
		if err != nil {
			logger.Error("audit retention purge failed", zap.Error(err))
			return
		}
		if deleted > 0 {
			logger.Info("audit retention purge", zap.Int64("deleted", deleted))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	friendsH := apirest.NewFriendsHandler(db, friendsSvc, auditSvc)
	usersH := apirest.NewUsersHandler(friendsSvc)
	ratingsH := apirest.NewRatingsHandler(ratingsSvc, auditSvc)
	placesH := apirest.NewPlacesHandler(placesClient)
	adminH := apirest.NewAdminHandler(db, pubsub, ratingsSvc, sched, auditSvc, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/signup", authH.Signup)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c, db), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c, db), authH.Refresh)

		usersG := api.Group("/users")
		usersG.Use(mw.Auth(cfg.Security, c, db))
		usersG.GET("/me", usersH.Me)
		usersG.GET("/search", usersH.Search)

		friendsG := api.Group("/friends")
		friendsG.Use(mw.Auth(cfg.Security, c, db))
		friendsG.GET("", friendsH.List)
		friendsG.GET("/pending", friendsH.Pending)
		friendsG.POST("/request", friendsH.Request)
		friendsG.POST("/accept", friendsH.Accept)
		friendsG.DELETE("/:id", friendsH.Delete)

		ratingsG := api.Group("/ratings")
		ratingsG.Use(mw.Auth(cfg.Security, c, db))
		ratingsG.GET("", ratingsH.List)
		ratingsG.POST("", ratingsH.Create)
		ratingsG.PUT("", ratingsH.Update)

		placesG := api.Group("/places")
		placesG.Use(mw.Auth(cfg.Security, c, db))
		placesG.GET("/:id/ratings", ratingsH.ForPlaceAndFriends)
		placesG.GET("/lookup/:google_id", placesH.Details)
		placesG.GET("/search", placesH.Search)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Security.AdminIPs), mw.Auth(cfg.Security, c, db), mw.RequireAdmin())
		adminG.GET("/users", adminH.ListUsers)
		adminG.DELETE("/users/:id", adminH.DeleteUser)
		adminG.DELETE("/ratings/:id", adminH.DeleteRating)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
