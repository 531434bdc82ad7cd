// Package zapi talks to a Z-API WhatsApp instance: outbound text, button and
// option-list messages, and decoding of the inbound webhook callback.
package zapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/config"
	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
)

// WhatsApp rejects button messages with more than three buttons.
const maxButtons = 3

type Client struct {
	baseURL     string
	clientToken string
	interactive bool
	httpClient  *http.Client
	logger      *zap.Logger
}

func NewClient(cfg config.ZAPIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     fmt.Sprintf("%s/instances/%s/token/%s", strings.TrimRight(cfg.BaseURL, "/"), cfg.Instance, cfg.Token),
		clientToken: cfg.ClientToken,
		interactive: cfg.Interactive,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
}

// SendResult is what Z-API answers for every send-* call.
type SendResult struct {
	ZaapID    string `json:"zaapId"`
	MessageID string `json:"messageId"`
	ID        string `json:"id"`
}

type textRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type buttonListRequest struct {
	Phone      string `json:"phone"`
	Message    string `json:"message"`
	ButtonList struct {
		Buttons []Button `json:"buttons"`
	} `json:"buttonList"`
}

type ListOption struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type optionListRequest struct {
	Phone      string `json:"phone"`
	Message    string `json:"message"`
	OptionList struct {
		Title       string       `json:"title"`
		ButtonLabel string       `json:"buttonLabel"`
		Options     []ListOption `json:"options"`
	} `json:"optionList"`
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, phone, text string) (*SendResult, error) {
	var result SendResult
	req := textRequest{Phone: FormatPhone(phone), Message: text}
	if err := c.doJSON(ctx, http.MethodPost, "/send-text", req, &result); err != nil {
		return nil, fmt.Errorf("send text: %w", err)
	}
	return &result, nil
}

// SendButtons sends text with up to three reply buttons.
func (c *Client) SendButtons(ctx context.Context, phone, text string, buttons []Button) (*SendResult, error) {
	if len(buttons) == 0 || len(buttons) > maxButtons {
		return nil, fmt.Errorf("send buttons: %d buttons, want 1..%d", len(buttons), maxButtons)
	}
	req := buttonListRequest{Phone: FormatPhone(phone), Message: text}
	req.ButtonList.Buttons = buttons
	var result SendResult
	if err := c.doJSON(ctx, http.MethodPost, "/send-button-list", req, &result); err != nil {
		return nil, fmt.Errorf("send buttons: %w", err)
	}
	return &result, nil
}

// SendOptionList sends text with a tap-to-open list of options.
func (c *Client) SendOptionList(ctx context.Context, phone, text, title, buttonLabel string, options []ListOption) (*SendResult, error) {
	req := optionListRequest{Phone: FormatPhone(phone), Message: text}
	req.OptionList.Title = title
	req.OptionList.ButtonLabel = buttonLabel
	req.OptionList.Options = options
	var result SendResult
	if err := c.doJSON(ctx, http.MethodPost, "/send-option-list", req, &result); err != nil {
		return nil, fmt.Errorf("send option list: %w", err)
	}
	return &result, nil
}

// Send delivers an engine reply. Choices go out as buttons or an option list
// when interactive messages are enabled, and as numbered text otherwise.
func (c *Client) Send(ctx context.Context, to string, m message.Outbound) error {
	var (
		res *SendResult
		err error
	)
	switch m := m.(type) {
	case nil:
		return nil
	case message.Text:
		res, err = c.SendText(ctx, to, m.Body)
	case message.Choice:
		res, err = c.sendChoice(ctx, to, m)
	default:
		return fmt.Errorf("zapi: unsupported outbound %T", m)
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			c.logger.Warn("z-api rejected the credentials, check zapi.client_token", zap.Int("status", apiErr.Status))
		}
		return err
	}
	c.logger.Debug("message sent", zap.String("to", to), zap.String("message_id", res.MessageID))
	return nil
}

func (c *Client) sendChoice(ctx context.Context, to string, m message.Choice) (*SendResult, error) {
	if !c.interactive || len(m.Options) == 0 {
		return c.SendText(ctx, to, m.PlainText())
	}
	text := choiceText(m)
	if len(m.Options) <= maxButtons {
		buttons := make([]Button, 0, len(m.Options))
		for _, o := range m.Options {
			buttons = append(buttons, Button{ID: o.ID, Label: o.Label})
		}
		return c.SendButtons(ctx, to, text, buttons)
	}
	options := make([]ListOption, 0, len(m.Options))
	for _, o := range m.Options {
		options = append(options, ListOption{ID: o.ID, Title: o.ID + ". " + o.Label})
	}
	title := m.Title
	if title == "" {
		title = i18n.T(ctx, "common.choose")
	}
	return c.SendOptionList(ctx, to, text, title, i18n.T(ctx, "common.choose"), options)
}

// choiceText is the message body shown above buttons or a list.
func choiceText(m message.Choice) string {
	parts := make([]string, 0, 3)
	if m.Title != "" {
		parts = append(parts, "*"+m.Title+"*")
	}
	if m.Body != "" {
		parts = append(parts, m.Body)
	}
	if m.Footer != "" {
		parts = append(parts, m.Footer)
	}
	return strings.Join(parts, "\n\n")
}

// FormatPhone keeps the digits of a phone number.
func FormatPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.clientToken != "" {
		req.Header.Set("Client-Token", c.clientToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Body)
}

// Unauthorized reports whether the instance rejected the credentials, usually a
// missing or wrong client token.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}
