package controller

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"

	"fmail/utils"
)

// ComposeController turns bullet points into a full email via the LLM, with
// a deterministic template fallback, and optionally delivers the result over
// SMTP.
type ComposeController struct {
	chat   *utils.ChatClient // nil when no API key is configured
	mailer *utils.Mailer
	logger *log.Logger
}

func NewComposeController(chat *utils.ChatClient, mailer *utils.Mailer, logger *log.Logger) *ComposeController {
	return &ComposeController{
		chat:   chat,
		mailer: mailer,
		logger: logger,
	}
}

type composeInput struct {
	Bullets   []string `json:"bullets" validate:"required,min=1"`
	Tone      string   `json:"tone"`
	Recipient string   `json:"recipient"`
	Subject   string   `json:"subject"`
}

type composedEmail struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

const composeSystemPrompt = `You are an assistant that turns bullet points into a polished, concise, professional email. Return JSON with keys 'recipient', 'subject' and 'body'. Keep the email clear and readable.`

// Generate composes an email from bullets without sending it.
func (cc *ComposeController) Generate(c *fiber.Ctx) error {
	var input composeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	return c.JSON(utils.SuccessResponse(cc.compose(c, input)))
}

// Send composes an email and delivers it over SMTP.
func (cc *ComposeController) Send(c *fiber.Ctx) error {
	var input composeInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.Recipient == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Recipient is required for sending", nil)
	}
	if err := checkmail.ValidateFormat(input.Recipient); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid recipient address", err)
	}
	if cc.mailer == nil || !cc.mailer.Enabled() {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "SMTP is not configured", nil)
	}

	email := cc.compose(c, input)
	if err := cc.mailer.Send(email.Recipient, email.Subject, email.Body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Failed to send email", err)
	}

	cc.logger.Printf("sent composed email to %s", email.Recipient)
	return c.JSON(utils.SuccessResponse(email))
}

func (cc *ComposeController) compose(c *fiber.Ctx, input composeInput) composedEmail {
	if cc.chat == nil {
		return fallbackCompose(input)
	}

	request := map[string]interface{}{
		"bullets":   input.Bullets,
		"tone":      input.Tone,
		"recipient": input.Recipient,
		"subject":   input.Subject,
		"requirements": []string{
			"Subject should be short and informative",
			"Body should be a few short paragraphs or a brief intro and a list",
			"Close politely",
		},
	}

	raw, err := cc.chat.CompleteJSON(c.Context(), composeSystemPrompt, request)
	if err != nil {
		cc.logger.Printf("LLM compose failed, using fallback: %v", err)
		return fallbackCompose(input)
	}

	var email composedEmail
	if err := json.Unmarshal(raw, &email); err != nil {
		cc.logger.Printf("LLM compose response unparseable, using fallback: %v", err)
		return fallbackCompose(input)
	}

	// Backfill anything the model left empty.
	if email.Recipient == "" {
		email.Recipient = input.Recipient
	}
	if email.Subject == "" {
		email.Subject = fallbackSubject(input)
	}
	if email.Body == "" {
		email.Body = fallbackCompose(input).Body
	}
	return email
}

func fallbackSubject(input composeInput) string {
	if input.Subject != "" {
		return input.Subject
	}
	if len(input.Bullets) > 0 {
		return input.Bullets[0]
	}
	return "Follow-up"
}

// fallbackCompose renders a plain templated email when no model is available.
func fallbackCompose(input composeInput) composedEmail {
	greeting := "Hello,"
	if input.Recipient != "" {
		greeting = "Hi " + input.Recipient + ","
	}

	lines := []string{greeting, "", "I wanted to share a quick summary:"}
	for _, bullet := range input.Bullets {
		lines = append(lines, "- "+bullet)
	}
	if input.Tone != "" && input.Tone != "neutral" {
		lines = append(lines, "", "Tone requested: "+input.Tone)
	}
	lines = append(lines, "", "Best regards,\nYour Name")

	return composedEmail{
		Recipient: input.Recipient,
		Subject:   fallbackSubject(input),
		Body:      strings.Join(lines, "\n"),
	}
}
