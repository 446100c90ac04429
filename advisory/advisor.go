package advisory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/models"
)

// MinDescriptionLength is the shortest trimmed description worth classifying
const MinDescriptionLength = 10

const systemPrompt = "You triage emergency calls for an ambulance dispatch center."

const promptTemplate = `Analyze the following emergency description and classify it into one of four priority levels.
Priority 1: Life-threatening (e.g., cardiac arrest, not breathing, severe bleeding, chest pain).
Priority 2: Serious, not immediately life-threatening (e.g., broken bones, fall, deep cut).
Priority 3: Urgent, not life-threatening (e.g., minor car accident, sprain, fever).
Priority 4: Non-urgent.
Only respond with a single digit: 1, 2, 3, or 4.
Description: %q`

// Advisor suggests a priority for a call description. The second value is
// false when there is no suggestion; an advisor never fails a caller.
type Advisor interface {
	Suggest(ctx context.Context, description string) (models.Priority, bool)
}

// ChatCompleter is the part of the OpenAI client the advisor uses
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAdvisor asks a chat completion model to classify the description
type OpenAIAdvisor struct {
	client ChatCompleter
	model  string
	log    *zap.SugaredLogger
}

// NewOpenAIAdvisor creates an advisor talking to the OpenAI API
func NewOpenAIAdvisor(apiKey, model string, log *zap.SugaredLogger) *OpenAIAdvisor {
	return NewOpenAIAdvisorWithClient(openai.NewClient(apiKey), model, log)
}

// NewOpenAIAdvisorWithClient creates an advisor on top of an existing client
func NewOpenAIAdvisorWithClient(client ChatCompleter, model string, log *zap.SugaredLogger) *OpenAIAdvisor {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAdvisor{client: client, model: model, log: log}
}

// Suggest implements Advisor
func (a *OpenAIAdvisor) Suggest(ctx context.Context, description string) (models.Priority, bool) {
	description = strings.TrimSpace(description)
	if len([]rune(description)) < MinDescriptionLength {
		return 0, false
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, description)},
		},
	})
	if err != nil {
		a.log.Warnw("priority suggestion failed", "error", err)
		return 0, false
	}
	if len(resp.Choices) == 0 {
		a.log.Warnw("priority suggestion returned no choices")
		return 0, false
	}

	p, ok := ParsePriority(resp.Choices[0].Message.Content)
	if !ok {
		a.log.Warnw("unusable priority suggestion", "content", resp.Choices[0].Message.Content)
	}
	return p, ok
}

// ParsePriority reads the leading integer of a model reply. Anything outside
// 1 to 4 is not a priority.
func ParsePriority(text string) (models.Priority, bool) {
	text = strings.TrimSpace(text)
	end := strings.IndexFunc(text, func(r rune) bool { return !unicode.IsDigit(r) })
	if end < 0 {
		end = len(text)
	}
	n, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0, false
	}
	p := models.Priority(n)
	if !p.Valid() {
		return 0, false
	}
	return p, true
}

// Disabled never suggests anything. It stands in when no API key is configured.
type Disabled struct{}

// Suggest implements Advisor
func (Disabled) Suggest(context.Context, string) (models.Priority, bool) {
	return 0, false
}
