package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"guidepost/app/pkg/types"
)

const (
	defaultAPIRoot   = "https://slack.com/api"
	defaultEventPath = "/slack/events"
	defaultSlashPath = "/slack/commands"
)

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

type Config struct {
	BotToken   string
	ListenPort int
	EventPath  string
	SlashPath  string
	APIRoot    string

	// Status, when set, is rendered as JSON from /health. Typically the
	// gateway's health snapshot.
	Status func() interface{}
}

// Channel receives Slack app_mention events and slash commands over the
// Events API and delivers replies through chat.postMessage.
type Channel struct {
	cfg     Config
	id      string
	server  *http.Server
	handler func(types.Message)

	botID string
	mu    sync.RWMutex
}

func NewChannel(cfg Config) *Channel {
	if cfg.ListenPort <= 0 {
		cfg.ListenPort = 8091
	}
	if strings.TrimSpace(cfg.EventPath) == "" {
		cfg.EventPath = defaultEventPath
	}
	if strings.TrimSpace(cfg.SlashPath) == "" {
		cfg.SlashPath = defaultSlashPath
	}
	if strings.TrimSpace(cfg.APIRoot) == "" {
		cfg.APIRoot = defaultAPIRoot
	}
	cfg.EventPath = ensureLeadingSlash(cfg.EventPath)
	cfg.SlashPath = ensureLeadingSlash(cfg.SlashPath)
	return &Channel{
		cfg: cfg,
		id:  "slack",
	}
}

func (c *Channel) ID() string {
	return c.id
}

func (c *Channel) Start(ctx context.Context, handler func(types.Message)) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	if botID, err := c.resolveBotID(ctx); err != nil {
		log.Printf("[Slack] Could not resolve bot identity: %v", err)
	} else {
		c.mu.Lock()
		c.botID = botID
		c.mu.Unlock()
		log.Printf("[Slack] Connected as bot %s", botID)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(c.cfg.EventPath, c.handleEvent)
	mux.HandleFunc(c.cfg.SlashPath, c.handleSlash)
	mux.HandleFunc("/health", c.handleHealth)

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.cfg.ListenPort),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Slack] Shutdown error: %v", err)
		}
	}()

	log.Printf("[Slack] Listening on :%d (events=%s commands=%s)", c.cfg.ListenPort, c.cfg.EventPath, c.cfg.SlashPath)
	err := c.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (c *Channel) Send(ctx context.Context, msg types.Message) error {
	token := strings.TrimSpace(c.cfg.BotToken)
	if token == "" {
		return fmt.Errorf("slack bot token is required")
	}

	chatID := c.resolvePeer(msg)
	if chatID == "" {
		return fmt.Errorf("slack channel id is required")
	}

	payload := map[string]interface{}{
		"channel": chatID,
		"text":    msg.Content,
	}
	if strings.TrimSpace(msg.ThreadTS) != "" {
		payload["thread_ts"] = msg.ThreadTS
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.APIRoot, "/")+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	var ack struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &ack); err == nil && !ack.OK {
		return fmt.Errorf("slack api error: %s", ack.Error)
	}
	return nil
}

func (c *Channel) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var envelope eventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if envelope.Type == "url_verification" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"challenge": envelope.Challenge})
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))

	if envelope.Type != "event_callback" {
		return
	}
	if envelope.Event.Type != "app_mention" {
		return
	}

	text := c.stripMention(envelope.Event.Text)
	threadTS := strings.TrimSpace(envelope.Event.ThreadTs)
	if threadTS == "" {
		threadTS = strings.TrimSpace(envelope.Event.Ts)
	}

	msg := types.Message{
		ID:        "slack-" + uuid.NewString(),
		Content:   text,
		Role:      types.MessageRoleUser,
		ChannelID: c.id,
		UserID:    strings.TrimSpace(envelope.Event.User),
		PeerID:    strings.TrimSpace(envelope.Event.Channel),
		ThreadTS:  threadTS,
		RequestID: "req-" + uuid.NewString(),
		Meta: map[string]interface{}{
			"event_ts": envelope.Event.Ts,
		},
	}
	go c.dispatch(msg)
}

// handleSlash converts a slash-command invocation into the same shape the
// agent sees for mentions. The command text is prefixed with "/" so
// "/assistant status" and a mention saying "/status" dispatch identically;
// a bare invocation asks for help.
func (c *Channel) handleSlash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(r.FormValue("text"))
	content := "/help"
	if text != "" {
		content = "/" + text
	}

	// Ack within Slack's deadline; the reply is posted asynchronously
	// once the handler goroutine finishes.
	w.WriteHeader(http.StatusOK)

	msg := types.Message{
		ID:        "slack-" + uuid.NewString(),
		Content:   content,
		Role:      types.MessageRoleUser,
		ChannelID: c.id,
		UserID:    strings.TrimSpace(r.FormValue("user_id")),
		PeerID:    strings.TrimSpace(r.FormValue("channel_id")),
		RequestID: "req-" + uuid.NewString(),
		Meta: map[string]interface{}{
			"command": strings.TrimSpace(r.FormValue("command")),
		},
	}
	go c.dispatch(msg)
}

func (c *Channel) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if c.cfg.Status != nil {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.cfg.Status())
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (c *Channel) dispatch(msg types.Message) {
	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler != nil {
		handler(msg)
	}
}

// resolveBotID calls auth.test so inbound mentions of the bot itself can
// be stripped before the text reaches the agent.
func (c *Channel) resolveBotID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.APIRoot, "/")+"/auth.test", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.BotToken))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("slack api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	var ack struct {
		OK     bool   `json:"ok"`
		Error  string `json:"error"`
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(respBody, &ack); err != nil {
		return "", err
	}
	if !ack.OK {
		return "", fmt.Errorf("slack api error: %s", ack.Error)
	}
	return ack.UserID, nil
}

func (c *Channel) stripMention(text string) string {
	c.mu.RLock()
	botID := c.botID
	c.mu.RUnlock()

	if botID != "" {
		text = strings.ReplaceAll(text, "<@"+botID+">", "")
	} else {
		// Without a resolved identity, drop the leading mention only.
		if loc := mentionPattern.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = text[loc[1]:]
		}
	}
	return strings.TrimSpace(text)
}

func (c *Channel) resolvePeer(msg types.Message) string {
	if strings.TrimSpace(msg.PeerID) != "" {
		return strings.TrimSpace(msg.PeerID)
	}
	return strings.TrimSpace(msg.UserID)
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}

type eventEnvelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	Event     eventInner `json:"event"`
}

type eventInner struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	Text     string `json:"text"`
	Ts       string `json:"ts"`
	ThreadTs string `json:"thread_ts"`
	Channel  string `json:"channel"`
}
