package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/talentops/interview-api/config"
	"github.com/talentops/interview-api/handlers"
	"github.com/talentops/interview-api/interview"
	"github.com/talentops/interview-api/middleware"
	"github.com/talentops/interview-api/routes"
	"github.com/talentops/interview-api/services"
	"github.com/talentops/interview-api/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	primary, err := openStore(cfg)
	if err != nil {
		log.Fatal("Failed to connect to invite store:", err)
	}
	defer primary.Close(context.Background())

	log.Printf("✅ Invite store connected (%s)", cfg.StoreBackend)

	outbox := store.NewOutbox(cfg.PendingQueuePath)
	invites := store.NewFallbackStore(primary, outbox)

	go runReconciler(primary, outbox)

	artifacts, err := services.NewArtifactStore(cfg.RecordsDir)
	if err != nil {
		log.Fatal("Failed to prepare interview records dir:", err)
	}

	email := services.NewEmailService(cfg.ResendAPIKey, cfg.FromEmail, cfg.HTTPTimeout)
	resume := services.NewResumeService(cfg.UploadAPIURL, cfg.ParseAPIURL, cfg.ResumeAPIToken, cfg.HTTPTimeout)
	conversations := services.NewElevenLabsService(cfg.ElevenAPIKey, cfg.AgentID, cfg.HTTPTimeout)
	registry := interview.NewRegistry()

	inviteRouter := newRouter()
	routes.SetupInviteRoutes(inviteRouter, &handlers.InviteHandler{
		Store:  invites,
		Email:  email,
		Resume: resume,
		Cfg:    cfg,
	})

	interviewHandler := &handlers.InterviewHandler{
		Store:         invites,
		Registry:      registry,
		Conversations: conversations,
		Artifacts:     artifacts,
		Cfg:           cfg,
	}
	wsHandler := handlers.NewWSHandler(registry)

	interviewRouter := newRouter()
	routes.SetupInterviewRoutes(interviewRouter, interviewHandler, wsHandler)

	go func() {
		log.Printf("🚀 Invite service starting on %s...", cfg.InviteAddr)
		if err := inviteRouter.Run(cfg.InviteAddr); err != nil {
			log.Fatal("Failed to start invite service:", err)
		}
	}()

	log.Printf("🚀 Interview service starting on %s...", cfg.InterviewAddr)
	if err := interviewRouter.Run(cfg.InterviewAddr); err != nil {
		log.Fatal("Failed to start interview service:", err)
	}
}

func openStore(cfg *config.Config) (store.InviteStore, error) {
	switch cfg.StoreBackend {
	case "mongo":
		client, err := config.InitMongo(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return store.NewMongoStore(client, cfg.MongoDatabase), nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		db, err := config.InitDB(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := config.RunMigrations(db); err != nil {
			return nil, err
		}
		return store.NewPostgresStore(db), nil
	}
}

func newRouter() *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("📨 %s %s - %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	})

	router.Use(middleware.RateLimiter(100, time.Minute))

	return router
}

func runReconciler(primary store.InviteStore, outbox *store.Outbox) {
	reconciler := &store.Reconciler{Store: primary, Queue: outbox}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		if err := reconciler.Run(ctx); err != nil {
			log.Printf("❌ Pending-queue reconciliation failed: %v", err)
		}
		cancel()
	}
}
