package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"guidepost/app/core/knowledge"
	"guidepost/app/pkg/logger"
)

const systemPrompt = "You are an expert consultant providing guidance on implementation."

// Prompt-embedding truncation cutoffs. Knowledge past the cutoff is
// discarded, not summarized.
const (
	questionContextChars = 3000
	taskContextChars     = 1500
)

// Advisor answers implementation questions and writes task descriptions
// through the inference provider. Requests are single-shot: no retries,
// failures surface as errors for the caller to soften into user-facing text.
type Advisor struct {
	client openai.Client
	model  openai.ChatModel
	lib    *knowledge.Library
}

func New(apiKey string, model string, lib *knowledge.Library, opts ...option.RequestOption) *Advisor {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return &Advisor{
		client: openai.NewClient(append(base, opts...)...),
		model:  openai.ChatModel(model),
		lib:    lib,
	}
}

func (a *Advisor) Model() string {
	return string(a.model)
}

// Ask sends a free-text question with a knowledge excerpt as context and
// returns the trimmed answer.
func (a *Advisor) Ask(ctx context.Context, question string) (string, error) {
	var b strings.Builder
	b.WriteString("You are an expert consultant on the specific processes described in the following context.\n\n")
	b.WriteString("CONTEXT:\n")
	b.WriteString(a.lib.Excerpt(questionContextChars))
	b.WriteString("\n\nPlease answer this question about implementing these processes:\n")
	b.WriteString(question)
	b.WriteString("\n\nProvide a comprehensive but practical answer based on the knowledge provided.\n")
	b.WriteString("Reference specific sections of the implementation path where relevant.")
	return a.complete(ctx, b.String())
}

// Describe generates a detailed description for a single task.
func (a *Advisor) Describe(ctx context.Context, taskName string) (string, error) {
	var b strings.Builder
	b.WriteString("As an expert on the processes described in the implementation path, write a detailed description for the following task:\n\n")
	b.WriteString("TASK NAME: ")
	b.WriteString(taskName)
	b.WriteString("\n\nIMPLEMENTATION CONTEXT:\n")
	b.WriteString(a.lib.Excerpt(taskContextChars))
	b.WriteString("\n\nYour description should include:\n")
	b.WriteString("1. The purpose and importance of this task in the implementation\n")
	b.WriteString("2. Key requirements related to this task\n")
	b.WriteString("3. Implementation guidance (how to complete this task effectively)\n")
	b.WriteString("4. Common pitfalls to avoid\n")
	b.WriteString("5. How this task connects to other parts of the system\n")
	b.WriteString("6. How this task fits into the implementation path described above\n\n")
	b.WriteString("Format the description in clear paragraphs with appropriate headings.")
	return a.complete(ctx, b.String())
}

func (a *Advisor) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		logProviderError(err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("inference provider returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func logProviderError(err error) {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		logger.Error("Inference request failed: %v", err)
		return
	}
	switch {
	case apierr.StatusCode == 401:
		logger.Error("Inference authentication error (401): check OPENAI_API_KEY")
	case apierr.StatusCode == 429:
		logger.Error("Inference rate limit or quota exceeded (429): check billing status")
	case apierr.StatusCode >= 500:
		logger.Error("Inference server error (%d), try again later", apierr.StatusCode)
	default:
		logger.Error("Inference error (%d): %v", apierr.StatusCode, err)
	}
}
