package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"fmail/models"
	"fmail/utils"
)

type MessageController struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewMessageController(db *gorm.DB, logger *log.Logger) *MessageController {
	return &MessageController{
		db:     db,
		logger: logger,
	}
}

type messageInput struct {
	Subject   string `json:"subject" validate:"required,max=500"`
	Body      string `json:"body" validate:"required"`
	Sender    string `json:"sender" validate:"required,email"`
	Recipient string `json:"recipient" validate:"required,email"`
	Read      bool   `json:"read"`
}

// GetMessages returns all messages, newest first.
func (mc *MessageController) GetMessages(c *fiber.Ctx) error {
	var messages []models.Message
	if err := mc.db.Order("created_at DESC").Find(&messages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch messages", err)
	}
	return c.JSON(utils.SuccessResponse(messages))
}

// GetMessage returns one message by id.
func (mc *MessageController) GetMessage(c *fiber.Ctx) error {
	var message models.Message
	if err := mc.db.First(&message, utils.ParseUint(c.Params("id"))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Message not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch message", err)
	}
	return c.JSON(utils.SuccessResponse(message))
}

// CreateMessage stores a new message.
func (mc *MessageController) CreateMessage(c *fiber.Ctx) error {
	var input messageInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	message := models.Message{
		Subject:   input.Subject,
		Body:      input.Body,
		Sender:    input.Sender,
		Recipient: input.Recipient,
		Date:      time.Now(),
		Read:      input.Read,
	}
	if err := mc.db.Create(&message).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create message", err)
	}

	mc.logger.Printf("created message %d from %s", message.ID, message.Sender)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(message))
}

// UpdateMessage replaces a message's mutable fields.
func (mc *MessageController) UpdateMessage(c *fiber.Ctx) error {
	var message models.Message
	if err := mc.db.First(&message, utils.ParseUint(c.Params("id"))).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Message not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch message", err)
	}

	var input messageInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	message.Subject = input.Subject
	message.Body = input.Body
	message.Sender = input.Sender
	message.Recipient = input.Recipient
	message.Read = input.Read
	if err := mc.db.Save(&message).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update message", err)
	}
	return c.JSON(utils.SuccessResponse(message))
}

// DeleteMessage removes a message by id.
func (mc *MessageController) DeleteMessage(c *fiber.Ctx) error {
	result := mc.db.Delete(&models.Message{}, utils.ParseUint(c.Params("id")))
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete message", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Message not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"message": "Message deleted successfully"}))
}

// GetAppStats reports message/user aggregates (distinct from workflow stats).
func (mc *MessageController) GetAppStats(c *fiber.Ctx) error {
	var totalMessages, unreadMessages, totalUsers int64
	if err := mc.db.Model(&models.Message{}).Count(&totalMessages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute stats", err)
	}
	if err := mc.db.Model(&models.Message{}).Where("read = ?", false).Count(&unreadMessages).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute stats", err)
	}
	if err := mc.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute stats", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"total_messages":  totalMessages,
		"unread_messages": unreadMessages,
		"total_users":     totalUsers,
		"timestamp":       time.Now(),
	}))
}
