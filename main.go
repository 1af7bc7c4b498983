package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"fmail/config"
	"fmail/middleware"
	"fmail/routes"
	"fmail/utils"
	"fmail/worker"
	"fmail/workflow"
)

func main() {
	logger := log.New(os.Stdout, "FMAIL: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Error reporting, only when a DSN is configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Workflow engine: action log, debounced analysis, suggestions, hooks
	var chat workflow.ChatCompleter
	if config.AppConfig.OpenAI.APIKey != "" {
		chat = utils.NewChatClient(
			config.AppConfig.OpenAI.APIKey,
			config.AppConfig.OpenAI.BaseURL,
			config.AppConfig.OpenAI.Model,
		)
	}
	engine := workflow.NewEngine(workflow.Options{
		DebounceDelay: config.AppConfig.WorkflowDebounce,
		MinConfidence: config.AppConfig.MinConfidence,
		Chat:          chat,
		Logger:        logrus.WithField("component", "workflow"),
	})

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reap suggestions the user never answered
	reaper := worker.NewReaperWorker(engine.Suggestions(), config.AppConfig.SuggestionTTL,
		log.New(os.Stdout, "REAPER: ", log.LstdFlags))
	go reaper.Start(ctx)

	// Optional IMAP ingest feeding email_received hooks
	if config.AppConfig.IMAP.Host != "" {
		ingest := worker.NewIngestWorker(config.DB, engine, config.AppConfig.IMAP,
			log.New(os.Stdout, "INGEST: ", log.LstdFlags))
		go ingest.Start(ctx)
	}

	// Setup routes
	routes.SetupRoutes(app, config.DB, engine)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to FMail Backend API",
			"status":  "online",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
