package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"guidepost/app/core/assistant"
	"guidepost/app/core/knowledge"
	"guidepost/app/core/orchestrator/command"
	"guidepost/app/core/orchestrator/history"
	"guidepost/app/core/queue"
	"guidepost/app/core/tracker"
	"guidepost/app/pkg/types"
)

// QuestionAnswerer answers a free-text implementation question.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Operations is the slice of the assistant the agent dispatches to.
type Operations interface {
	Enrich(ctx context.Context, limit int) (assistant.EnrichResult, error)
	Upcoming(ctx context.Context, days int) ([]tracker.Task, error)
	Status(ctx context.Context) (assistant.StatusSummary, error)
	BulkAssign(ctx context.Context, tasks []tracker.Task, assignee string, dueOn string) (assistant.AssignResult, error)
}

// Notifier delivers an out-of-band message back to the conversation a
// request originated from, once a background job finishes.
type Notifier func(ctx context.Context, origin types.Message, text string)

// GuideAgent routes messages: slash-prefixed content goes through the
// command dispatcher, anything else is treated as an advisory question.
type GuideAgent struct {
	name    string
	advisor QuestionAnswerer
	ops     Operations
	lib     *knowledge.Library
	log     *history.Log
	command *command.Executor

	mu     sync.RWMutex
	jobs   *queue.Queue
	notify Notifier
}

func NewAgent(name string, advisor QuestionAnswerer, ops Operations, lib *knowledge.Library, log *history.Log) *GuideAgent {
	g := &GuideAgent{
		name:    name,
		advisor: advisor,
		ops:     ops,
		lib:     lib,
		log:     log,
		command: command.NewExecutor(),
	}
	g.registerHandlers()
	return g
}

// SetJobQueue makes enrichment run as a background job; completion is
// reported through the notifier. Without a queue, enrichment runs inline.
func (g *GuideAgent) SetJobQueue(q *queue.Queue, notify Notifier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.jobs = q
	g.notify = notify
}

func (g *GuideAgent) Name() string {
	return g.name
}

func (g *GuideAgent) Process(ctx context.Context, msg types.Message) (types.Message, error) {
	trimmed := strings.TrimSpace(msg.Content)
	if trimmed == "" {
		greeting := fmt.Sprintf("Hi <@%s>! How can I help you? Ask me anything about the implementation process.", msg.UserID)
		return g.newReply(msg, greeting), nil
	}

	if strings.HasPrefix(trimmed, "/") {
		out, handled, err := g.command.Execute(ctx, msg)
		if handled {
			if err != nil {
				return g.newReply(msg, fmt.Sprintf("Command failed: %v", err)), nil
			}
			return g.newReply(msg, out), nil
		}
	}

	// mentions and bare text are advisory questions
	answer, err := g.advisor.Ask(ctx, trimmed)
	if err != nil {
		apology := fmt.Sprintf("Sorry <@%s>, I couldn't get an answer to that question. Please try rephrasing or using the `/assistant ask` command.", msg.UserID)
		return g.newReply(msg, apology), nil
	}
	g.remember(msg, trimmed, answer)
	return g.newReply(msg, answer), nil
}

func (g *GuideAgent) remember(msg types.Message, question string, answer string) {
	if g.log == nil {
		return
	}
	key := fmt.Sprintf("%s-%s", msg.ChannelID, msg.UserID)
	g.log.Append(key, types.MessageRoleUser, question)
	g.log.Append(key, types.MessageRoleAssistant, answer)
}

func (g *GuideAgent) newReply(msg types.Message, content string) types.Message {
	return types.Message{
		ID:        fmt.Sprintf("asst-%d", time.Now().UnixNano()),
		Content:   content,
		Role:      types.MessageRoleAssistant,
		ChannelID: msg.ChannelID,
		UserID:    msg.UserID,
		PeerID:    msg.PeerID,
		ThreadTS:  msg.ThreadTS,
		RequestID: msg.RequestID,
		Meta:      msg.Meta,
	}
}

func (g *GuideAgent) jobQueue() (*queue.Queue, Notifier) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.jobs, g.notify
}
