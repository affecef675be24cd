package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"bracescarebot/pkg/config"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCompletionTokens bounds every generation, text and vision alike.
const maxCompletionTokens = 1000

// Model failure taxonomy. The orchestrator never surfaces these to the
// caller; they exist so logging and fallback selection can tell the cases
// apart.
var (
	ErrModelAuth      = errors.New("model authentication failed")
	ErrModelRateLimit = errors.New("model rate limit exceeded")
	ErrModelNetwork   = errors.New("model endpoint unreachable")
	ErrModel          = errors.New("model generation failed")
)

// Generator produces a model response for an assembled prompt context.
// One call means one attempt: no retries behind this interface.
type Generator interface {
	Generate(ctx context.Context, pc PromptContext) (string, error)
}

// LLMService wraps the GigaChat API: text generation through the gigago
// client and image requests through the Files + chat/completions REST
// endpoints, which gigago does not cover.
type LLMService struct {
	client     *gigago.Client
	model      *gigago.GenerativeModel
	config     *config.GigaChatConfig
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string

	mu          sync.Mutex
	accessToken string // cached token for direct REST calls
}

func NewLLMService(cfg *config.GigaChatConfig, systemInstructions string, logger *zap.Logger) (*LLMService, error) {
	ctx := context.Background()

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = systemInstructions
	model.Temperature = 0.7
	model.MaxTokens = maxCompletionTokens

	httpClient := &http.Client{}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &LLMService{
		client:     client,
		model:      model,
		config:     cfg,
		logger:     logger,
		httpClient: httpClient,
		// GigaChat REST API, used for the vision path
		// Documentation: https://developers.sber.ru/docs/ru/gigachat/api/main
		baseURL: "https://gigachat.devices.sberbank.ru/api/v1",
	}, nil
}

// Generate runs a single model call for the given context. Text-only
// requests go through gigago; requests with an image upload the attachment
// first and call the chat completions endpoint directly.
func (s *LLMService) Generate(ctx context.Context, pc PromptContext) (string, error) {
	if len(pc.Image) > 0 {
		return s.generateWithImage(ctx, pc)
	}

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: pc.UserPrompt},
	}

	resp, err := s.model.Generate(ctx, messages)
	if err != nil {
		return "", s.classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", ErrModel)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty message content", ErrModel)
	}

	return text, nil
}

func (s *LLMService) generateWithImage(ctx context.Context, pc PromptContext) (string, error) {
	fileID, err := s.uploadAttachment(ctx, pc.Image, pc.ImageMimeType)
	if err != nil {
		return "", err
	}

	// System instructions ride along in the content because the completions
	// call for attachments carries a single user message.
	content := pc.SystemInstructions + "\n\n" + pc.UserPrompt

	requestBody := map[string]interface{}{
		"model": s.config.Model,
		"messages": []map[string]interface{}{
			{
				"role":        "user",
				"content":     content,
				"attachments": [][]string{{fileID}},
			},
		},
		"temperature": 0.7,
		"max_tokens":  maxCompletionTokens,
		"stream":      false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal request: %v", ErrModel, err)
	}

	token, err := s.token(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModel, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", s.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", s.classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	var completionResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completionResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrModel, err)
	}

	if len(completionResp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices in response", ErrModel)
	}

	text := strings.TrimSpace(completionResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty message content", ErrModel)
	}

	s.logger.Debug("Vision completion finished", zap.Int("text_length", len(text)))

	return text, nil
}

// uploadAttachment pushes the image to the GigaChat Files API and returns
// the file ID referenced by the completions call.
// Endpoint: POST /files
func (s *LLMService) uploadAttachment(ctx context.Context, data []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// "general" purpose allows using the file in generation requests
	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("%w: failed to write purpose field: %v", ErrModel, err)
	}

	fileName := attachmentFileName(mimeType)
	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {mimeType},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to create form file: %v", ErrModel, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("%w: failed to write attachment: %v", ErrModel, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: failed to close writer: %v", ErrModel, err)
	}

	token, err := s.token(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModel, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", s.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", s.classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	var uploadResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode upload response: %v", ErrModel, err)
	}

	s.logger.Debug("Attachment uploaded to GigaChat", zap.String("file_id", uploadResp.ID))

	return uploadResp.ID, nil
}

// token returns the cached OAuth access token, fetching one on first use.
// A stale token surfaces as ErrModelAuth on the next call; there is no
// mid-request refresh.
func (s *LLMService) token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" {
		return s.accessToken, nil
	}

	token, err := fetchAccessToken(ctx, s.config, s.httpClient, s.logger)
	if err != nil {
		return "", err
	}
	s.accessToken = token
	return token, nil
}

// fetchAccessToken obtains an access token from the GigaChat OAuth endpoint.
// The API key is expected to already be Base64-encoded, per the GigaChat docs.
func fetchAccessToken(ctx context.Context, cfg *config.GigaChatConfig, httpClient *http.Client, logger *zap.Logger) (string, error) {
	oauthURL := "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"

	formData := url.Values{}
	formData.Set("scope", cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oauthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModel, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.Header.Set("Authorization", "Basic "+cfg.APIKey)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.Error("OAuth request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(bodyBytes)),
		)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return "", fmt.Errorf("%w: OAuth status %d", ErrModelAuth, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: OAuth status %d", ErrModel, resp.StatusCode)
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode OAuth response: %v", ErrModel, err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token in OAuth response", ErrModelAuth)
	}

	return oauthResp.AccessToken, nil
}

// classify maps a transport-level or client error onto the failure taxonomy.
func (s *LLMService) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrModelNetwork, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrModelNetwork, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "unauthorized"):
		return fmt.Errorf("%w: %v", ErrModelAuth, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return fmt.Errorf("%w: %v", ErrModelRateLimit, err)
	default:
		return fmt.Errorf("%w: %v", ErrModel, err)
	}
}

func (s *LLMService) classifyStatus(status int, body string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrModelAuth, status, body)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrModelRateLimit, status, body)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrModel, status, body)
	}
}

func attachmentFileName(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err == nil && len(exts) > 0 {
		return "attachment" + exts[0]
	}
	switch mimeType {
	case "image/jpeg":
		return "attachment.jpg"
	case "image/png":
		return "attachment.png"
	default:
		return "attachment.bin"
	}
}

func (s *LLMService) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	return nil
}
