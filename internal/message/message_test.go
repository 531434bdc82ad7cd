package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	assert.Equal(t, "hello", Render(Text{Body: "hello"}))
	assert.Equal(t, "", Render(nil))

	c := Choice{
		Title:   "Menu",
		Body:    "Pick one",
		Options: []Option{{ID: "1", Label: "Sites"}, {ID: "2", Label: "Pool"}},
		Footer:  "0 to go back",
	}
	assert.Equal(t, "*Menu*\nPick one\n\n1. Sites\n2. Pool\n\n0 to go back", Render(c))
	assert.Equal(t, "1. A", Render(Choice{Options: []Option{{ID: "1", Label: "A"}}}))
	assert.Equal(t, "1. A\n\n0 to go back", Render(Choice{Options: []Option{{ID: "1", Label: "A"}}, Footer: "0 to go back"}))
	assert.Equal(t, "0 to go back", Render(Choice{Footer: "0 to go back"}))
}
