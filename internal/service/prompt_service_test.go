package service

import (
	"strings"
	"testing"

	"bracescarebot/internal/models"

	"github.com/stretchr/testify/require"
)

func TestBuild_Deterministic(t *testing.T) {
	b := NewPromptBuilder()
	entries := []models.KnowledgeEntry{
		{Topic: "Retainer care", Keywords: []string{"retainer"}, Content: "Clean daily.", Tips: []string{"cool water"}},
	}

	first := b.Build("how do I clean my retainer", entries, nil, nil, "")
	second := b.Build("how do I clean my retainer", entries, nil, nil, "")
	require.Equal(t, first, second)
}

func TestBuild_KnowledgeInGivenOrder(t *testing.T) {
	b := NewPromptBuilder()
	entries := []models.KnowledgeEntry{
		{Topic: "Alpha", Content: "alpha content"},
		{Topic: "Beta", Content: "beta content"},
	}

	pc := b.Build("question", entries, nil, nil, "")
	alphaIdx := strings.Index(pc.UserPrompt, "Topic: Alpha")
	betaIdx := strings.Index(pc.UserPrompt, "Topic: Beta")
	require.GreaterOrEqual(t, alphaIdx, 0)
	require.Greater(t, betaIdx, alphaIdx)
}

func TestBuild_SafetyDirectiveOnlyWhenFlagged(t *testing.T) {
	b := NewPromptBuilder()

	clean := b.Build("question", nil, nil, nil, "")
	require.NotContains(t, clean.UserPrompt, "potentially serious symptoms")

	flagged := b.Build("question", nil, []string{"severe pain"}, nil, "")
	require.Contains(t, flagged.UserPrompt, "potentially serious symptoms: severe pain")
	require.Contains(t, flagged.UserPrompt, "seek medical attention immediately")
}

func TestBuild_ImageStaysOutOfText(t *testing.T) {
	b := NewPromptBuilder()
	image := []byte{0xFF, 0xD8, 0xFF}

	pc := b.Build("what is this on my bracket", nil, nil, image, "image/jpeg")
	require.Equal(t, image, pc.Image)
	require.Equal(t, "image/jpeg", pc.ImageMimeType)
	require.NotContains(t, pc.UserPrompt, "image/jpeg")
}

func TestBuild_EmptyKnowledgeOmitsSection(t *testing.T) {
	b := NewPromptBuilder()

	pc := b.Build("question", nil, nil, nil, "")
	require.NotContains(t, pc.UserPrompt, "knowledge base")
	require.Contains(t, pc.UserPrompt, "User question: question")
}

func TestSystemInstructionsFixed(t *testing.T) {
	b := NewPromptBuilder()

	pc := b.Build("anything", nil, []string{"fever"}, nil, "")
	require.Equal(t, b.SystemInstructions(), pc.SystemInstructions)
	require.Contains(t, pc.SystemInstructions, "BracesCareBot")
}
