package zapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Gustavoab019/startia/internal/message"
)

// ErrIgnored marks callbacks that carry nothing for the engine: our own
// messages, group chats, status updates and empty payloads.
var ErrIgnored = errors.New("callback ignored")

// Callback is the "on message received" webhook body. Only the fields the
// assistant reads are declared.
type Callback struct {
	Type       string `json:"type"`
	MessageID  string `json:"messageId"`
	Phone      string `json:"phone"`
	FromMe     bool   `json:"fromMe"`
	IsGroup    bool   `json:"isGroup"`
	SenderName string `json:"senderName"`
	ChatName   string `json:"chatName"`
	Moment     int64  `json:"momment"`

	Text *struct {
		Message string `json:"message"`
	} `json:"text,omitempty"`
	Image *struct {
		ImageURL string `json:"imageUrl"`
		Caption  string `json:"caption"`
		MimeType string `json:"mimeType"`
	} `json:"image,omitempty"`
	Document *struct {
		DocumentURL string `json:"documentUrl"`
		Caption     string `json:"caption"`
		MimeType    string `json:"mimeType"`
	} `json:"document,omitempty"`
	ButtonsResponse *struct {
		ButtonID string `json:"buttonId"`
		Message  string `json:"message"`
	} `json:"buttonsResponseMessage,omitempty"`
	ListResponse *struct {
		Message       string `json:"message"`
		Title         string `json:"title"`
		SelectedRowID string `json:"selectedRowId"`
	} `json:"listResponseMessage,omitempty"`
}

// DecodeCallback parses a webhook body into an inbound message.
func DecodeCallback(body []byte) (message.Inbound, error) {
	var cb Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return message.Inbound{}, fmt.Errorf("decode callback: %w", err)
	}
	return cb.Inbound()
}

// Inbound converts the callback. Button and list replies become the selected
// option id so they reach the engine exactly as a typed answer would.
func (cb Callback) Inbound() (message.Inbound, error) {
	if cb.FromMe || cb.IsGroup {
		return message.Inbound{}, ErrIgnored
	}
	if cb.Type != "" && cb.Type != "ReceivedCallback" {
		return message.Inbound{}, ErrIgnored
	}
	phone := FormatPhone(cb.Phone)
	if phone == "" {
		return message.Inbound{}, fmt.Errorf("%w: no phone", ErrIgnored)
	}

	in := message.Inbound{ActorID: phone, NameHint: strings.TrimSpace(cb.SenderName)}
	switch {
	case cb.ButtonsResponse != nil:
		in.Text = firstNonEmpty(cb.ButtonsResponse.ButtonID, cb.ButtonsResponse.Message)
	case cb.ListResponse != nil:
		in.Text = firstNonEmpty(cb.ListResponse.SelectedRowID, cb.ListResponse.Title, cb.ListResponse.Message)
	case cb.Image != nil && cb.Image.ImageURL != "":
		in.Text = strings.TrimSpace(cb.Image.Caption)
		in.Media = &message.Media{URL: cb.Image.ImageURL, MimeType: cb.Image.MimeType, Caption: in.Text}
	case cb.Document != nil && cb.Document.DocumentURL != "":
		in.Text = strings.TrimSpace(cb.Document.Caption)
		in.Media = &message.Media{URL: cb.Document.DocumentURL, MimeType: cb.Document.MimeType, Caption: in.Text}
	case cb.Text != nil:
		in.Text = strings.TrimSpace(cb.Text.Message)
	}

	if in.Text == "" && in.Media == nil {
		return message.Inbound{}, fmt.Errorf("%w: no text or media", ErrIgnored)
	}
	return in, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
