package handlers

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"bracescarebot/internal/dto"
	"bracescarebot/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	maxMessageChars = 500
	maxImageBytes   = 5 * 1024 * 1024
)

type ChatHandler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Chat godoc
// @Summary Ask the orthodontic care assistant
// @Description Runs the chat pipeline: safety screening, knowledge lookup, model call, optional persistence
// @Tags chat
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Chat request"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /chat [post]
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Invalid request body",
		})
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Message cannot be empty",
		})
	}
	if utf8.RuneCountInString(message) > maxMessageChars {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Message exceeds the 500 character limit",
		})
	}

	var image []byte
	if req.Image != "" {
		if !strings.HasPrefix(req.ImageMimeType, "image/") {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: "Attachment must be an image",
			})
		}

		decoded, err := decodeImage(req.Image)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: "Invalid image encoding",
			})
		}
		if len(decoded) > maxImageBytes {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: "Image exceeds the 5MB limit",
			})
		}
		image = decoded
	}

	resp := h.chatService.ProcessMessage(c.Context(), c.IP(), service.ChatInput{
		Message:       message,
		Consent:       req.Consent,
		Image:         image,
		ImageMimeType: req.ImageMimeType,
	})

	return c.JSON(resp)
}

// History godoc
// @Summary Recent chat history for the caller
// @Description Returns persisted records for the calling client, newest first; empty when persistence is disabled
// @Tags chat
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Success 200 {object} dto.HistoryResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /history [get]
func (h *ChatHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	records, err := h.chatService.History(c.Context(), c.IP(), limit)
	if err != nil {
		h.logger.Error("Failed to list history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "Failed to list history",
		})
	}

	resp := dto.HistoryResponse{Records: make([]dto.HistoryRecordResponse, 0, len(records))}
	for _, rec := range records {
		resp.Records = append(resp.Records, dto.HistoryRecordResponse{
			ID:        rec.ID.String(),
			UserID:    rec.UserID,
			Sender:    string(rec.Sender),
			Text:      rec.Text,
			Timestamp: rec.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return c.JSON(resp)
}

// decodeImage accepts plain base64 or a data URL and returns the raw bytes.
func decodeImage(encoded string) ([]byte, error) {
	if idx := strings.Index(encoded, ";base64,"); idx != -1 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[idx+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(encoded)
}
