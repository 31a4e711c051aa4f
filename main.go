package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"game-economy-system/handlers"
	"game-economy-system/middleware"
	"game-economy-system/models"
	"game-economy-system/services"
	"game-economy-system/utils"
	"game-economy-system/workers"

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
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles",
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
		&models.CreditAccount{},
		&models.LedgerState{},
		&models.LedgerEntry{},
		&models.TierRecord{},
		&models.AccrualRecord{},
		&models.Round{},
		&models.PrizeClaim{},
		&models.GameClock{},
		&models.AssetMirror{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- CONFIGURE Registry Service Details for ownership lookups ---
	registryURL := os.Getenv("REGISTRY_SERVICE_URL")
	if registryURL == "" {
		log.Fatal("REGISTRY_SERVICE_URL environment variable not set")
	}
	economyServiceToken := os.Getenv("ECONOMY_SERVICE_TOKEN")
	if economyServiceToken == "" {
		log.Fatal("ECONOMY_SERVICE_TOKEN environment variable not set")
	}
	// --- END CONFIG ---

	registryClient := services.NewRegistryServiceClient(registryURL, economyServiceToken)

	clockService := services.NewClockService(db)
	ledgerService := services.NewCreditLedgerService(db)
	tierService := services.NewTierService(db, ledgerService, registryClient)
	accrualService := services.NewAccrualService(db, ledgerService, tierService, clockService, registryClient)
	roundService := services.NewRoundService(db, ledgerService)

	// --- Asset registry polling (mirror + accrual registration) ---
	assetSyncClient := workers.NewAssetSyncClient(db, accrualService)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollAssets(ctx, assetSyncClient, 30*time.Second)
	// --- END ---

	services.StartEconomyScheduler(tierService, roundService)

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupEconomyRoutes(app, ledgerService, tierService, accrualService)
	handlers.SetupRoundRoutes(app, roundService)
	handlers.SetupAdminRoutes(app, ledgerService, accrualService, roundService, clockService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Asset registry polling running (every 30s)")
	log.Println("✅ Economy scheduler running (downgrade enforcement + sweep audit)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
