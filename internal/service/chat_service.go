package service

import (
	"context"
	"errors"

	"bracescarebot/internal/dto"
	"bracescarebot/internal/knowledge"
	"bracescarebot/internal/models"
	"bracescarebot/internal/repository"
	"bracescarebot/pkg/config"

	"go.uber.org/zap"
)

// Fixed user-facing texts. The raw model failure never reaches the caller;
// one of these does instead.
const (
	fallbackResponse = "I'm sorry, I'm experiencing technical difficulties right now. " +
		"Please try again later or contact your orthodontist if you have urgent questions."
	fallbackResponseRedFlags = "I'm experiencing technical difficulties, but I noticed you mentioned " +
		"some concerning symptoms. Please contact your orthodontist or seek medical attention immediately for proper care."
	urgentCareNotice = "If your symptoms are severe or getting worse, please contact your " +
		"orthodontist or seek urgent medical care right away."
)

// ChatInput is a validated chat request: the handler has already enforced
// message bounds and decoded the image.
type ChatInput struct {
	Message       string
	Consent       bool
	Image         []byte
	ImageMimeType string
}

// ChatService runs the per-request pipeline: safety screen, knowledge
// lookup, prompt assembly, one model call and optional persistence. It holds
// no per-request state; concurrent requests are independent.
type ChatService struct {
	kb      *knowledge.Base
	safety  *SafetyFilter
	prompts *PromptBuilder
	gen     Generator
	history repository.HistoryStore // nil when persistence is disabled
	cfg     *config.Config
	logger  *zap.Logger
}

func NewChatService(
	kb *knowledge.Base,
	safety *SafetyFilter,
	prompts *PromptBuilder,
	gen Generator,
	history repository.HistoryStore,
	cfg *config.Config,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		kb:      kb,
		safety:  safety,
		prompts: prompts,
		gen:     gen,
		history: history,
		cfg:     cfg,
		logger:  logger,
	}
}

// ProcessMessage runs the whole pipeline once. It always produces a
// response: model failures degrade to a fixed fallback text and persistence
// failures are swallowed.
func (s *ChatService) ProcessMessage(ctx context.Context, userID string, in ChatInput) *dto.ChatResponse {
	redFlags := s.safety.Scan(in.Message)
	matched := s.kb.Lookup(in.Message)

	pc := s.prompts.Build(in.Message, matched, redFlags, in.Image, in.ImageMimeType)

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GigaChat.RequestTimeout)
	defer cancel()

	responseText, genErr := s.gen.Generate(genCtx, pc)

	resp := &dto.ChatResponse{
		RedFlags:      redFlags,
		KnowledgeUsed: len(matched) > 0,
	}
	if resp.RedFlags == nil {
		resp.RedFlags = []string{}
	}

	if genErr != nil {
		s.logger.Error("Model call failed",
			zap.Error(genErr),
			zap.Int("red_flags", len(redFlags)),
		)
		if len(redFlags) > 0 {
			responseText = fallbackResponseRedFlags
		} else {
			responseText = fallbackResponse
		}
		resp.Error = errorCategory(genErr)
		resp.KnowledgeUsed = false
	}

	// The urgent-care directive does not depend on what the model returned.
	if len(redFlags) > 0 {
		responseText = responseText + "\n\n" + urgentCareNotice
	}

	resp.Response = responseText

	if in.Consent && s.history != nil {
		s.persist(ctx, userID, in.Message, responseText)
	}

	return resp
}

// persist appends the user message and the bot response, in that order.
// Failures are logged and swallowed; they never affect the HTTP response.
func (s *ChatService) persist(ctx context.Context, userID, userText, botText string) {
	appendCtx, cancel := context.WithTimeout(ctx, s.cfg.History.AppendTimeout)
	defer cancel()

	records := []*models.HistoryRecord{
		{UserID: userID, Sender: models.SenderUser, Text: sanitizeUTF8(userText)},
		{UserID: userID, Sender: models.SenderBot, Text: sanitizeUTF8(botText)},
	}

	for _, rec := range records {
		if err := s.history.Append(appendCtx, rec); err != nil {
			s.logger.Warn("Failed to append history record",
				zap.String("sender", string(rec.Sender)),
				zap.Error(err),
			)
			return
		}
	}

	s.logger.Debug("Chat saved to history store", zap.String("user_id", userID))
}

// History returns the most recent records for a user, newest first. With
// persistence disabled it returns an empty list rather than an error.
func (s *ChatService) History(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error) {
	if s.history == nil {
		return []*models.HistoryRecord{}, nil
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	records, err := s.history.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.HistoryRecord{}
	}
	return records, nil
}

// errorCategory reduces a classified model failure to the coarse label the
// response carries. Provider detail stays in the logs.
func errorCategory(err error) string {
	switch {
	case errors.Is(err, ErrModelAuth):
		return "auth_error"
	case errors.Is(err, ErrModelRateLimit):
		return "rate_limit"
	case errors.Is(err, ErrModelNetwork):
		return "network_error"
	default:
		return "model_error"
	}
}
