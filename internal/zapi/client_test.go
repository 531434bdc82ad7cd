package zapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gustavoab019/startia/internal/config"
	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type captured struct {
	Path        string
	ClientToken string
	Body        map[string]any
}

type fakeZAPI struct {
	mu       sync.Mutex
	requests []captured
	status   int
}

func (f *fakeZAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.requests = append(f.requests, captured{Path: r.URL.Path, ClientToken: r.Header.Get("Client-Token"), Body: body})
	status := f.status
	f.mu.Unlock()

	if status >= 400 {
		http.Error(w, `{"error":"not allowed"}`, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"zaapId":"z1","messageId":"m1","id":"m1"}`))
}

func (f *fakeZAPI) last(t *testing.T) captured {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, interactive bool) (*Client, *fakeZAPI) {
	t.Helper()
	fake := &fakeZAPI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c := NewClient(config.ZAPIConfig{
		BaseURL:     srv.URL + "/",
		Instance:    "inst1",
		Token:       "tok1",
		ClientToken: "secret",
		Interactive: interactive,
	}, nil)
	return c, fake
}

func TestSendText(t *testing.T) {
	c, fake := newTestClient(t, true)

	res, err := c.SendText(context.Background(), "+351 910-000-001", "hello")
	require.NoError(t, err)
	assert.Equal(t, "m1", res.MessageID)

	req := fake.last(t)
	assert.Equal(t, "/instances/inst1/token/tok1/send-text", req.Path)
	assert.Equal(t, "secret", req.ClientToken)
	assert.Equal(t, "351910000001", req.Body["phone"])
	assert.Equal(t, "hello", req.Body["message"])
}

func TestSend_ChoiceWithFewOptionsUsesButtons(t *testing.T) {
	c, fake := newTestClient(t, true)

	err := c.Send(context.Background(), "351910000001", message.Choice{
		Title:   "Presence",
		Body:    "Not checked in yet",
		Options: []message.Option{{ID: "1", Label: "Check in"}, {ID: "2", Label: "Check out"}},
	})
	require.NoError(t, err)

	req := fake.last(t)
	assert.Equal(t, "/instances/inst1/token/tok1/send-button-list", req.Path)
	assert.Equal(t, "*Presence*\n\nNot checked in yet", req.Body["message"])
	buttons := req.Body["buttonList"].(map[string]any)["buttons"].([]any)
	require.Len(t, buttons, 2)
	assert.Equal(t, map[string]any{"id": "1", "label": "Check in"}, buttons[0])
}

func TestSend_ChoiceWithManyOptionsUsesList(t *testing.T) {
	c, fake := newTestClient(t, true)

	opts := []message.Option{{ID: "1", Label: "a"}, {ID: "2", Label: "b"}, {ID: "3", Label: "c"}, {ID: "4", Label: "d"}}
	require.NoError(t, c.Send(context.Background(), "351910000001", message.Choice{Title: "Menu", Options: opts}))

	req := fake.last(t)
	assert.Equal(t, "/instances/inst1/token/tok1/send-option-list", req.Path)
	list := req.Body["optionList"].(map[string]any)
	assert.Equal(t, "Menu", list["title"])
	assert.Equal(t, "Choose", list["buttonLabel"])
	options := list["options"].([]any)
	require.Len(t, options, 4)
	assert.Equal(t, "4", options[3].(map[string]any)["id"])
	assert.Equal(t, "4. d", options[3].(map[string]any)["title"])
}

func TestSend_PlainTextWhenNotInteractive(t *testing.T) {
	c, fake := newTestClient(t, false)

	choice := message.Choice{Title: "Menu", Options: []message.Option{{ID: "1", Label: "Sites"}}}
	require.NoError(t, c.Send(context.Background(), "351910000001", choice))

	req := fake.last(t)
	assert.Equal(t, "/instances/inst1/token/tok1/send-text", req.Path)
	assert.Equal(t, choice.PlainText(), req.Body["message"])
}

func TestSend_NilIsNoop(t *testing.T) {
	c, fake := newTestClient(t, true)
	require.NoError(t, c.Send(context.Background(), "351910000001", nil))
	assert.Empty(t, fake.requests)
}

func TestSend_APIError(t *testing.T) {
	c, fake := newTestClient(t, true)
	fake.status = http.StatusForbidden

	err := c.Send(context.Background(), "351910000001", message.Text{Body: "hi"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.True(t, apiErr.Unauthorized())
}

func TestSendButtons_RejectsTooMany(t *testing.T) {
	c, _ := newTestClient(t, true)
	_, err := c.SendButtons(context.Background(), "1", "x", make([]Button, 4))
	assert.Error(t, err)
}
