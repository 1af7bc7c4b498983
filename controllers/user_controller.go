package controller

import (
	"log"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"fmail/config"
	"fmail/models"
	"fmail/utils"
)

type UserController struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewUserController(db *gorm.DB, logger *log.Logger) *UserController {
	return &UserController{
		db:     db,
		logger: logger,
	}
}

type userInput struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,max=200"`
}

// GetUsers returns all users.
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := uc.db.Find(&users).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch users", err)
	}
	return c.JSON(utils.SuccessResponse(users))
}

// GetUser returns one user by id.
func (uc *UserController) GetUser(c *fiber.Ctx) error {
	var user models.User
	if err := uc.db.First(&user, utils.ParseUint(c.Params("id"))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch user", err)
	}
	return c.JSON(utils.SuccessResponse(user))
}

// CreateUser registers a new inbox owner.
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	var input userInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	user := models.User{
		Email: input.Email,
		Name:  input.Name,
	}
	if err := uc.db.Create(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Failed to create user", err)
	}

	uc.logger.Printf("created user %d (%s)", user.ID, user.Email)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(user))
}

// CreateSession issues a bearer token bound to a fresh session id. With no
// JWT secret configured the API runs open and this endpoint just hands back
// the session id.
func (uc *UserController) CreateSession(c *fiber.Ctx) error {
	var input struct {
		UserID uint `json:"user_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var user models.User
	if err := uc.db.First(&user, input.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	sessionID := uuid.NewString()
	response := fiber.Map{"session_id": sessionID}

	if config.AppConfig.JWTSecret != "" {
		token, err := utils.GenerateJWTToken(user.ID, sessionID)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to issue token", err)
		}
		response["access_token"] = token
	}

	return c.JSON(utils.SuccessResponse(response))
}
