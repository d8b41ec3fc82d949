package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"guidepost/app/pkg/types"
)

// commandWords are operator keywords translated into slash commands; any
// other input is sent through as a free-text advisory question.
var commandWords = map[string]bool{
	"help":   true,
	"ask":    true,
	"tasks":  true,
	"status": true,
	"phase":  true,
	"enrich": true,
	"assign": true,
}

type CLIChannel struct {
	id       string
	userID   string
	in       io.Reader
	shutdown func()
}

// NewCLIChannel builds the operator console. shutdown is invoked when the
// operator types quit/exit so the whole service stops, not just this loop.
func NewCLIChannel(userID string, shutdown func()) *CLIChannel {
	if strings.TrimSpace(userID) == "" {
		userID = "operator"
	}
	return &CLIChannel{id: "cli", userID: userID, in: os.Stdin, shutdown: shutdown}
}

func (c *CLIChannel) ID() string {
	return c.id
}

func (c *CLIChannel) Start(ctx context.Context, handler func(types.Message)) error {
	scanner := bufio.NewScanner(c.in)
	fmt.Println(">> Assistant CLI started. Type 'exit' to quit, 'help' for commands.")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			fmt.Print("> ")
			if !scanner.Scan() {
				return nil
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if text == "exit" || text == "quit" {
				fmt.Println("Exiting application...")
				if c.shutdown != nil {
					c.shutdown()
				}
				return nil
			}

			msg := types.Message{
				ID:        fmt.Sprintf("cli-%d", time.Now().UnixNano()),
				Content:   translate(text),
				Role:      types.MessageRoleUser,
				ChannelID: c.id,
				UserID:    c.userID,
				PeerID:    c.userID,
				Meta: map[string]interface{}{
					"user_id": c.userID,
				},
			}
			handler(msg)
		}
	}
}

func (c *CLIChannel) Send(ctx context.Context, msg types.Message) error {
	fmt.Printf("[Assistant]: %s\n", msg.Content)
	return nil
}

// translate maps operator shorthand onto the agent's command set. "run"
// kicks off a small enrichment batch, command keywords become slash
// commands, and anything else stays an advisory question.
func translate(text string) string {
	if strings.HasPrefix(text, "/") {
		return text
	}
	if text == "run" {
		return "/enrich 3"
	}
	word := strings.ToLower(strings.SplitN(text, " ", 2)[0])
	if commandWords[word] {
		return "/" + text
	}
	return text
}
