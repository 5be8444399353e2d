// Package assistant produces assistant replies for a conversation.
package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// NoReply is returned when the model answers with empty content.
const NoReply = "No valid reply"

const defaultTemperature = 0.7

var ErrEmptyHistory = errors.New("no user message to reply to")

type Responder interface {
	Reply(ctx context.Context, history []models.Message) (string, error)
}

// OpenAIResponder calls an OpenAI-compatible chat completions API.
type OpenAIResponder struct {
	client      openai.Client
	model       string
	temperature float64
}

func NewOpenAIResponder(apiKey, baseURL, model string, opts ...option.RequestOption) *OpenAIResponder {
	all := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		all = append(all, option.WithBaseURL(baseURL))
	}
	all = append(all, opts...)

	return &OpenAIResponder{
		client:      openai.NewClient(all...),
		model:       model,
		temperature: defaultTemperature,
	}
}

// toParams converts the conversation, skipping local error notes.
func toParams(history []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		if m.IsAnnotation() {
			continue
		}
		switch m.Role {
		case common.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		case common.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (r *OpenAIResponder) Reply(ctx context.Context, history []models.Message) (string, error) {
	msgs := toParams(history)
	if len(msgs) == 0 {
		return "", ErrEmptyHistory
	}

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(r.model),
		Messages:    msgs,
		Temperature: openai.Float(r.temperature),
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return NoReply, nil
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return NoReply, nil
	}
	return content, nil
}

// EchoResponder answers without a model, for offline use and tests.
type EchoResponder struct{}

func (EchoResponder) Reply(ctx context.Context, history []models.Message) (string, error) {
	for i := len(history) - 1; i >= 0; i-- {
		if m := history[i]; m.Role == common.RoleUser && !m.IsAnnotation() {
			return "Echo: " + m.Content, nil
		}
	}
	return "", ErrEmptyHistory
}

// New returns an OpenAIResponder when apiKey is set and an EchoResponder
// otherwise.
func New(apiKey, baseURL, model string) Responder {
	if apiKey == "" {
		return EchoResponder{}
	}
	return NewOpenAIResponder(apiKey, baseURL, model)
}
