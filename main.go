package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"game-match-system/handlers"
	"game-match-system/middleware"
	"game-match-system/models"
	"game-match-system/services"
	"game-match-system/utils"
	"game-match-system/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Name",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.PlayerStats{},
		&models.MatchRecord{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	statsService := services.NewStatsService(db)

	sessionCfg := services.DefaultSessionConfig()
	if raw := os.Getenv("TURN_TIME_SECONDS"); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			sessionCfg.TurnTime = secs
		} else {
			log.Printf("⚠️  Invalid TURN_TIME_SECONDS %q, keeping default %v", raw, sessionCfg.TurnTime)
		}
	}

	registry := services.NewSessionRegistry(statsService, sessionCfg)
	matchmaker := services.NewMatchmaker(registry, 5*time.Second)

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal("failed to create scheduler:", err)
	}
	if err := matchmaker.StartPairingJob(sched); err != nil {
		log.Fatal("failed to schedule pairing job:", err)
	}
	archiveWorker := &workers.MatchArchiveWorker{DB: db}
	if err := archiveWorker.Register(sched); err != nil {
		log.Fatal("failed to register archive worker:", err)
	}
	reaper := &workers.SessionReaper{Registry: registry, MaxIdle: 5 * time.Minute}
	if err := reaper.Register(sched); err != nil {
		log.Fatal("failed to register session reaper:", err)
	}
	sched.Start()

	// ✅ Setup routes — all behind Gateway auth + user context
	handlers.SetupMatchmakingRoutes(app, matchmaker, statsService)
	handlers.SetupMatchRoutes(app, registry, statsService)
	handlers.SetupStatsRoutes(app, statsService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Matchmaking pairing job running (every 5s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	matchmaker.Stop()
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
}
