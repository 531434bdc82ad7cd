// Package message defines the inbound and outbound shapes exchanged with a messaging gateway.
package message

import (
	"fmt"
	"strings"
)

// Media is an attachment on an inbound message. URL is already durable when it
// reaches the workflow engine.
type Media struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type Inbound struct {
	ActorID  string // phone-like identity key
	Text     string
	Media    *Media
	NameHint string // display name offered by the transport, may be empty
}

// Outbound is either Text or Choice.
type Outbound interface {
	outbound()
}

type Text struct {
	Body string
}

// Choice is a prompt with selectable options, rendered as buttons or a list
// where the transport supports it and as numbered text otherwise.
type Choice struct {
	Title   string
	Body    string
	Options []Option
	Footer  string
}

// Option.ID is what the user types (or the button sends) to select it.
type Option struct {
	ID    string
	Label string
}

func (Text) outbound()   {}
func (Choice) outbound() {}

// Render flattens a message to plain text.
func Render(m Outbound) string {
	switch m := m.(type) {
	case Text:
		return m.Body
	case Choice:
		return m.PlainText()
	case nil:
		return ""
	default:
		panic(fmt.Sprintf("message: unknown outbound %T", m))
	}
}

func (c Choice) PlainText() string {
	var b strings.Builder
	if c.Title != "" {
		b.WriteString("*" + c.Title + "*\n")
	}
	if c.Body != "" {
		b.WriteString(c.Body)
		b.WriteString("\n")
	}
	if len(c.Options) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		for _, o := range c.Options {
			fmt.Fprintf(&b, "%s. %s\n", o.ID, o.Label)
		}
	}
	if c.Footer != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.Footer)
	}
	return strings.TrimRight(b.String(), "\n")
}
