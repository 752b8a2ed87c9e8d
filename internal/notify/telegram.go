// Package notify delivers the extracted value to a Telegram chat.
//
// Delivery is best effort. Send reports what happened in a Result and never
// returns an error, so a Telegram outage cannot fail a run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/Buck-Ouro/Jupiter/internal/config"
	"github.com/Buck-Ouro/Jupiter/internal/logger"
	"github.com/Buck-Ouro/Jupiter/internal/version"
	"github.com/Buck-Ouro/Jupiter/pkg/extractor"
)

const (
	DefaultAPIBase    = "https://api.telegram.org"
	DefaultTimeout    = 30 * time.Second
	ParseModeMarkdown = "Markdown"
)

// Message is the sendMessage request body.
type Message struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Result describes one delivery attempt.
type Result struct {
	Delivered  bool
	StatusCode int
	Reason     string // Telegram's description on rejection
	Err        error  // Transport failure
}

// apiResponse is the envelope every Bot API reply uses.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Config holds the Telegram client settings.
type Config struct {
	Token    string
	ChatID   string
	APIBase  string
	Template string // text/template over TemplateData
	Title    string
	PageURL  string
	Timeout  time.Duration

	// HTTPClient overrides the default client (Timeout is then ignored).
	HTTPClient *http.Client
}

// TemplateData is what the message template can reference.
type TemplateData struct {
	Title    string
	Display  string
	Strategy string
	URL      string
	Time     time.Time
}

// Telegram sends messages through the Bot API.
type Telegram struct {
	token      string
	chatID     string
	endpoint   string
	title      string
	pageURL    string
	tmpl       *template.Template
	httpClient *http.Client
}

// NewTelegram validates cfg and builds a client. Missing credentials or a
// broken template are configuration errors.
func NewTelegram(cfg Config) (*Telegram, error) {
	var missing []string
	if strings.TrimSpace(cfg.Token) == "" {
		missing = append(missing, config.EnvTelegramKey)
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		missing = append(missing, config.EnvChatID)
	}
	if len(missing) > 0 {
		return nil, config.Missing(missing...)
	}

	if cfg.Template == "" {
		cfg.Template = config.DefaultMessageTemplate
	}
	tmpl, err := template.New("message").Option("missingkey=error").Parse(cfg.Template)
	if err != nil {
		return nil, config.Invalid(config.EnvPrefix+"_MESSAGE_TEMPLATE", "%v", err)
	}

	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Telegram{
		token:      cfg.Token,
		chatID:     cfg.ChatID,
		endpoint:   apiBase + "/bot" + cfg.Token + "/sendMessage",
		title:      cfg.Title,
		pageURL:    cfg.PageURL,
		tmpl:       tmpl,
		httpClient: client,
	}, nil
}

// Format renders the message text for v.
func (t *Telegram) Format(v extractor.Value) (string, error) {
	var buf bytes.Buffer
	err := t.tmpl.Execute(&buf, TemplateData{
		Title:    t.title,
		Display:  v.Display,
		Strategy: v.Strategy,
		URL:      t.pageURL,
		Time:     time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}
	return buf.String(), nil
}

// Send posts one message carrying v. It makes exactly one request.
func (t *Telegram) Send(ctx context.Context, v extractor.Value) Result {
	text, err := t.Format(v)
	if err != nil {
		logger.Error("telegram message not sent", "error", err)
		return Result{Err: err}
	}

	body, err := json.Marshal(Message{ChatID: t.chatID, Text: text, ParseMode: ParseModeMarkdown})
	if err != nil {
		return Result{Err: fmt.Errorf("marshal message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		err = t.redact(err)
		logger.Error("telegram request not built", "error", err)
		return Result{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	logger.Debug("sending telegram message", "chat_id", t.chatID, "value", v.Display)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		err = t.redact(err)
		logger.Error("telegram delivery failed", "chat_id", t.chatID, "error", err)
		return Result{Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Info("telegram message delivered", "chat_id", t.chatID, "value", v.Display)
		return Result{Delivered: true, StatusCode: resp.StatusCode}
	}

	reason := http.StatusText(resp.StatusCode)
	var apiResp apiResponse
	if json.Unmarshal(raw, &apiResp) == nil && apiResp.Description != "" {
		reason = apiResp.Description
	}
	logger.Error("telegram rejected message",
		"chat_id", t.chatID,
		"status_code", resp.StatusCode,
		"reason", reason)
	return Result{StatusCode: resp.StatusCode, Reason: reason}
}

// redact strips the bot token, which is part of the request URL, from
// transport errors.
func (t *Telegram) redact(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, t.token) {
		return err
	}
	redacted := errors.New(strings.ReplaceAll(msg, t.token, "<redacted>"))
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", context.Canceled, redacted)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, redacted)
	}
	return redacted
}
