package service

import (
	"fmt"
	"strings"

	"bracescarebot/internal/models"
)

// PromptContext is the fully assembled model input for one request. The
// image, when present, travels as a separate multimodal attachment and is
// never inlined into the text prompt.
type PromptContext struct {
	SystemInstructions string
	UserPrompt         string
	Image              []byte
	ImageMimeType      string
}

// buildSystemInstruction creates the fixed persona and safety posture for the
// assistant. It is identical for every request.
func buildSystemInstruction() string {
	return `You are BracesCareBot, a helpful and cautious assistant providing orthodontic care advice.

IMPORTANT GUIDELINES:
- Always be supportive and encouraging
- Provide helpful, evidence-based information
- If you detect serious symptoms or red flags, immediately recommend seeing an orthodontist or medical professional
- Never provide specific medical diagnoses
- Always remind users that your advice doesn't replace professional medical care
- Be empathetic and understanding about orthodontic concerns

Use the provided knowledge base information to give accurate advice about braces, retainers, and orthodontic care.`
}

// PromptBuilder assembles model prompts. Assembly is deterministic string
// concatenation: same inputs, same prompt.
type PromptBuilder struct {
	systemInstructions string
}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{systemInstructions: buildSystemInstruction()}
}

// Build combines the user message, the matched knowledge entries (in the
// order given) and the red-flag directive into a PromptContext.
func (b *PromptBuilder) Build(message string, knowledge []models.KnowledgeEntry, redFlags []string, image []byte, imageMimeType string) PromptContext {
	var prompt strings.Builder

	prompt.WriteString("User question: ")
	prompt.WriteString(message)

	if len(knowledge) > 0 {
		prompt.WriteString("\n\nRelevant information from knowledge base:\n")
		for _, entry := range knowledge {
			prompt.WriteString(fmt.Sprintf("Topic: %s\n", entry.Topic))
			prompt.WriteString(fmt.Sprintf("Content: %s\n", entry.Content))
			if len(entry.Tips) > 0 {
				prompt.WriteString(fmt.Sprintf("Tips: %s\n", strings.Join(entry.Tips, ", ")))
			}
			prompt.WriteString("\n")
		}
	}

	if len(redFlags) > 0 {
		prompt.WriteString(fmt.Sprintf(
			"\n\nIMPORTANT: The user mentioned potentially serious symptoms: %s. Please prioritize recommending they contact their orthodontist or seek medical attention immediately.",
			strings.Join(redFlags, ", "),
		))
	}

	return PromptContext{
		SystemInstructions: b.systemInstructions,
		UserPrompt:         prompt.String(),
		Image:              image,
		ImageMimeType:      imageMimeType,
	}
}

// SystemInstructions exposes the fixed preamble, used to configure the model
// once at startup.
func (b *PromptBuilder) SystemInstructions() string {
	return b.systemInstructions
}
