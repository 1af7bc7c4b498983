package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"fmail/config"
	controller "fmail/controllers"
	"fmail/middleware"
	"fmail/utils"
	"fmail/workflow"
)

// SetupRoutes wires the REST API, the auth endpoint and the workflow
// websocket onto the app.
func SetupRoutes(app *fiber.App, db *gorm.DB, engine *workflow.Engine) {
	// Initialize controllers with their respective loggers
	messageController := controller.NewMessageController(db, log.New(os.Stdout, "MESSAGE: ", log.LstdFlags))
	userController := controller.NewUserController(db, log.New(os.Stdout, "USER: ", log.LstdFlags))
	workflowController := controller.NewWorkflowController(engine, log.New(os.Stdout, "WORKFLOW: ", log.LstdFlags))
	wsHandler := controller.NewWorkflowSocketHandler(engine, log.New(os.Stdout, "WS: ", log.LstdFlags))

	var chat *utils.ChatClient
	if config.AppConfig.OpenAI.APIKey != "" {
		chat = utils.NewChatClient(
			config.AppConfig.OpenAI.APIKey,
			config.AppConfig.OpenAI.BaseURL,
			config.AppConfig.OpenAI.Model,
		)
	}
	composeController := controller.NewComposeController(
		chat,
		utils.NewMailer(config.AppConfig.SMTP),
		log.New(os.Stdout, "COMPOSE: ", log.LstdFlags),
	)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	// Session issuance (open; the original backend had no login flow)
	app.Post("/auth/session", userController.CreateSession)

	// Workflow websocket: one connection per (user, session) pair
	app.Get("/ws/:userID/:sessionID", websocket.New(wsHandler.Handle))

	// API group with logging and optional JWT protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Message routes
	message := api.Group("/messages")
	message.Get("/", messageController.GetMessages)
	message.Post("/", messageController.CreateMessage)
	message.Get("/:id", messageController.GetMessage)
	message.Put("/:id", messageController.UpdateMessage)
	message.Delete("/:id", messageController.DeleteMessage)

	// User routes
	user := api.Group("/users")
	user.Get("/", userController.GetUsers)
	user.Post("/", userController.CreateUser)
	user.Get("/:id", userController.GetUser)

	// Compose routes, rate limited per LLM cost
	compose := api.Group("/compose", middleware.ComposeRateLimiter())
	compose.Post("/", composeController.Generate)
	compose.Post("/send", composeController.Send)

	// Workflow collaborator routes
	wf := api.Group("/workflow")
	wf.Get("/actions/:userID", workflowController.GetActions)
	wf.Get("/hooks/:userID", workflowController.GetHooks)
	wf.Put("/hooks/:userID/:hookID/toggle", workflowController.ToggleHook)
	wf.Delete("/hooks/:userID/:hookID", workflowController.DeleteHook)
	wf.Get("/stats", workflowController.GetStats)

	// Application-level aggregates
	api.Get("/stats", messageController.GetAppStats)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	log.Println("API routes initialized successfully")
}
