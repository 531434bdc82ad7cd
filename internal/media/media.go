// Package media turns inbound attachments into URLs the store can keep.
package media

import (
	"context"
	"errors"
	"strings"

	"github.com/Gustavoab019/startia/internal/message"
)

var ErrNoURL = errors.New("media has no url")

type Resolver interface {
	Resolve(ctx context.Context, m *message.Media) (string, error)
}

// Passthrough trusts the transport's URL. Z-API already serves media from its
// own storage, so no copy is made.
type Passthrough struct{}

func (Passthrough) Resolve(_ context.Context, m *message.Media) (string, error) {
	if m == nil || strings.TrimSpace(m.URL) == "" {
		return "", ErrNoURL
	}
	return strings.TrimSpace(m.URL), nil
}
