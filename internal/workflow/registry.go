package workflow

import (
	"context"
	"slices"

	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
)

// Request is one inbound message as seen by a state handler. Text is the
// trimmed original; Command is Text case-folded for keyword matching.
type Request struct {
	Actor   *model.Actor
	Text    string
	Command string
	Media   *message.Media
}

// HandlerFunc handles input in one state and returns the reply and the next
// state. It may mutate the actor's scratch and sub-state; the engine persists them.
type HandlerFunc func(ctx context.Context, req *Request) (message.Outbound, model.State, error)

type Registry struct {
	handlers map[model.State]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[model.State]HandlerFunc{}}
}

func (r *Registry) Register(state model.State, h HandlerFunc) {
	r.handlers[state] = h
}

func (r *Registry) Lookup(state model.State) (HandlerFunc, bool) {
	h, ok := r.handlers[state]
	return h, ok
}

// States lists the registered states in a stable order.
func (r *Registry) States() []model.State {
	out := make([]model.State, 0, len(r.handlers))
	for s := range r.handlers {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
