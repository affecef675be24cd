package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bracescarebot/internal/knowledge"
	"bracescarebot/internal/models"
	"bracescarebot/pkg/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Fakes ---

type fakeGenerator struct {
	response string
	err      error
	lastPC   PromptContext
	calls    int
}

func (f *fakeGenerator) Generate(ctx context.Context, pc PromptContext) (string, error) {
	f.calls++
	f.lastPC = pc
	return f.response, f.err
}

type fakeHistoryStore struct {
	appended  []*models.HistoryRecord
	appendErr error
	listed    []*models.HistoryRecord
	listErr   error
}

func (f *fakeHistoryStore) Append(ctx context.Context, record *models.HistoryRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, record)
	return nil
}

func (f *fakeHistoryStore) ListRecent(ctx context.Context, userID string, limit int) ([]*models.HistoryRecord, error) {
	return f.listed, f.listErr
}

func testConfig() *config.Config {
	return &config.Config{
		GigaChat: config.GigaChatConfig{RequestTimeout: time.Second},
		History:  config.HistoryConfig{AppendTimeout: time.Second},
	}
}

func testKB() *knowledge.Base {
	return knowledge.New([]models.KnowledgeEntry{
		{Topic: "Retainer care", Keywords: []string{"retainer"}, Content: "Clean daily."},
	})
}

// --- Tests ---

func TestProcessMessage_HappyPath(t *testing.T) {
	gen := &fakeGenerator{response: "Rinse it with cool water every day."}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, nil, testConfig(), zap.NewNop())

	resp := svc.ProcessMessage(context.Background(), "127.0.0.1", ChatInput{
		Message: "How do I clean my retainer?",
	})

	require.Equal(t, "Rinse it with cool water every day.", resp.Response)
	require.True(t, resp.KnowledgeUsed)
	require.Equal(t, []string{}, resp.RedFlags)
	require.Empty(t, resp.Error)
	require.Equal(t, 1, gen.calls)
}

func TestProcessMessage_RedFlagForcesUrgentDirective(t *testing.T) {
	gen := &fakeGenerator{response: "Try rinsing with salt water."}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, nil, testConfig(), zap.NewNop())

	resp := svc.ProcessMessage(context.Background(), "127.0.0.1", ChatInput{
		Message: "I can't breathe after my adjustment",
	})

	require.NotEmpty(t, resp.RedFlags)
	// The directive is present no matter what the model said.
	require.Contains(t, resp.Response, "urgent medical care")
	require.Contains(t, resp.Response, "Try rinsing with salt water.")
}

func TestProcessMessage_ModelFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: connection refused", ErrModelNetwork)}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, nil, testConfig(), zap.NewNop())

	resp := svc.ProcessMessage(context.Background(), "127.0.0.1", ChatInput{
		Message: "How do I clean my retainer?",
	})

	require.Equal(t, fallbackResponse, resp.Response)
	require.Equal(t, "network_error", resp.Error)
	// Knowledge matched, but a failed generation never reports it as used.
	require.False(t, resp.KnowledgeUsed)
}

func TestProcessMessage_ModelFailureWithRedFlags(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, nil, testConfig(), zap.NewNop())

	resp := svc.ProcessMessage(context.Background(), "127.0.0.1", ChatInput{
		Message: "severe bleeding that won't stop",
	})

	require.NotEmpty(t, resp.RedFlags)
	require.Contains(t, resp.Response, fallbackResponseRedFlags)
	require.Contains(t, resp.Response, "urgent medical care")
	require.Equal(t, "model_error", resp.Error)
}

func TestProcessMessage_NoConsentNoRecords(t *testing.T) {
	gen := &fakeGenerator{response: "Cover it with wax and call your orthodontist."}
	store := &fakeHistoryStore{}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, store, testConfig(), zap.NewNop())

	resp := svc.ProcessMessage(context.Background(), "127.0.0.1", ChatInput{
		Message: "my wire snapped and is cutting my cheek, please help",
		Consent: false,
	})

	require.NotEmpty(t, resp.RedFlags)
	require.Empty(t, store.appended)
}

func TestProcessMessage_ConsentAppendsUserThenBot(t *testing.T) {
	gen := &fakeGenerator{response: "Clean it daily."}
	store := &fakeHistoryStore{}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, store, testConfig(), zap.NewNop())

	svc.ProcessMessage(context.Background(), "10.0.0.7", ChatInput{
		Message: "How do I clean my retainer?",
		Consent: true,
	})

	require.Len(t, store.appended, 2)
	require.Equal(t, models.SenderUser, store.appended[0].Sender)
	require.Equal(t, models.SenderBot, store.appended[1].Sender)
	require.Equal(t, "10.0.0.7", store.appended[0].UserID)
	require.Equal(t, "10.0.0.7", store.appended[1].UserID)
	require.Equal(t, "How do I clean my retainer?", store.appended[0].Text)
	require.Contains(t, store.appended[1].Text, "Clean it daily.")
}

func TestProcessMessage_StoreFailureSwallowed(t *testing.T) {
	gen := &fakeGenerator{response: "Clean it daily."}
	store := &fakeHistoryStore{appendErr: errors.New("store down")}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, store, testConfig(), zap.NewNop())

	resp := svc.ProcessMessage(context.Background(), "127.0.0.1", ChatInput{
		Message: "How do I clean my retainer?",
		Consent: true,
	})

	require.Equal(t, "Clean it daily.", resp.Response)
	require.Empty(t, resp.Error)
}

func TestProcessMessage_NoMatchNoFlags(t *testing.T) {
	gen := &fakeGenerator{response: "Generally, visit your orthodontist regularly."}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, nil, testConfig(), zap.NewNop())

	resp := svc.ProcessMessage(context.Background(), "127.0.0.1", ChatInput{
		Message: "hello there",
	})

	require.False(t, resp.KnowledgeUsed)
	require.Equal(t, []string{}, resp.RedFlags)
}

func TestHistory_DisabledStoreReturnsEmpty(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, nil, testConfig(), zap.NewNop())

	records, err := svc.History(context.Background(), "127.0.0.1", 20)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestHistory_NilResultNormalized(t *testing.T) {
	gen := &fakeGenerator{}
	store := &fakeHistoryStore{listed: nil}
	svc := NewChatService(testKB(), NewSafetyFilter(), NewPromptBuilder(), gen, store, testConfig(), zap.NewNop())

	records, err := svc.History(context.Background(), "127.0.0.1", 0)
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
}
