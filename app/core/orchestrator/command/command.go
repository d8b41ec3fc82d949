package command

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"guidepost/app/pkg/types"
)

// Handler executes one subcommand. content is the free text after the
// subcommand keyword.
type Handler func(ctx context.Context, msg types.Message, content string) (string, error)

type HelpProvider func() string

// Executor is a stateless dispatcher mapping subcommand keywords to
// handlers and rendering an unknown-command pointer otherwise.
type Executor struct {
	mu           sync.RWMutex
	handlers     map[string]Handler
	helpProvider HelpProvider
}

func NewExecutor() *Executor {
	return &Executor{handlers: map[string]Handler{}}
}

func (e *Executor) Register(name string, handler Handler) {
	if e == nil || handler == nil {
		return
	}
	commandName := strings.ToLower(strings.TrimSpace(name))
	if commandName == "" {
		return
	}
	e.mu.Lock()
	e.handlers[commandName] = handler
	e.mu.Unlock()
}

func (e *Executor) SetHelpProvider(provider HelpProvider) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.helpProvider = provider
	e.mu.Unlock()
}

// Execute dispatches a slash-prefixed message. handled reports whether the
// content was a command at all; an unknown subcommand is handled with a
// help pointer rather than an error.
func (e *Executor) Execute(ctx context.Context, msg types.Message) (out string, handled bool, err error) {
	cmd := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Content), "/"))
	parts := strings.SplitN(cmd, " ", 2)
	subcommand := strings.ToLower(strings.TrimSpace(parts[0]))
	content := ""
	if len(parts) > 1 {
		content = strings.TrimSpace(parts[1])
	}

	if subcommand == "" || subcommand == "help" {
		log.Printf("[Command] user=%s channel=%s command=%q", msg.UserID, msg.ChannelID, cmd)
		return e.helpText(), true, nil
	}

	handler := e.handlerFor(subcommand)
	if handler == nil {
		log.Printf("[Command] user=%s channel=%s unknown command=%q", msg.UserID, msg.ChannelID, cmd)
		return fmt.Sprintf("Unknown command: %s\nType `/assistant help` to see available commands.", subcommand), true, nil
	}

	log.Printf("[Command] user=%s channel=%s command=%q", msg.UserID, msg.ChannelID, cmd)
	out, err = handler(ctx, msg, content)
	return out, true, err
}

func (e *Executor) handlerFor(name string) Handler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.handlers[strings.ToLower(strings.TrimSpace(name))]
}

func (e *Executor) helpText() string {
	e.mu.RLock()
	provider := e.helpProvider
	commands := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		commands = append(commands, name)
	}
	e.mu.RUnlock()

	if provider != nil {
		return strings.TrimSpace(provider())
	}
	sort.Strings(commands)
	var b strings.Builder
	b.WriteString("Commands:\n")
	b.WriteString("  /help\n")
	for _, name := range commands {
		b.WriteString("  /")
		b.WriteString(name)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
