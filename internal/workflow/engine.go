// Package workflow turns short inbound messages into multi-step transactions.
// Each actor's conversation state is persisted on the actor; the engine looks
// up the handler for that state, applies global commands first, and saves the
// resulting state before the reply is delivered.
package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/lock"
	"github.com/Gustavoab019/startia/internal/media"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
	"github.com/Gustavoab019/startia/internal/store"
)

// Sender delivers replies. Delivery is best effort; failures never undo a transition.
type Sender interface {
	Send(ctx context.Context, to string, m message.Outbound) error
}

type Engine struct {
	actors   store.ActorRepo
	svc      *service.Services
	registry *Registry
	locker   lock.Locker
	sender   Sender
	media    media.Resolver
	logger   *zap.Logger
	now      func() time.Time
}

type Deps struct {
	Store    *store.Gateway
	Services *service.Services
	Locker   lock.Locker    // defaults to an in-process keyed mutex
	Sender   Sender         // nil means replies are only returned
	Media    media.Resolver // defaults to media.Passthrough
	Logger   *zap.Logger
}

func NewEngine(d Deps) *Engine {
	e := &Engine{
		actors:   d.Store.Actors,
		svc:      d.Services,
		registry: NewRegistry(),
		locker:   d.Locker,
		sender:   d.Sender,
		media:    d.Media,
		logger:   d.Logger,
		now:      d.Services.Options.Now,
	}
	if e.locker == nil {
		e.locker = lock.NewKeyedMutex()
	}
	if e.media == nil {
		e.media = media.Passthrough{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.registerHandlers()
	return e
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

// Process serializes per actor, handles the message and delivers the reply.
func (e *Engine) Process(ctx context.Context, in message.Inbound) error {
	unlock, err := e.locker.Lock(ctx, in.ActorID)
	if err != nil {
		return fmt.Errorf("lock actor %s: %w", in.ActorID, err)
	}
	defer unlock()

	out, err := e.Handle(ctx, in)
	if err != nil {
		e.logger.Error("handle message", zap.String("actor", in.ActorID), zap.Error(err))
		out = message.Text{Body: i18n.T(ctx, "error.generic")}
	}
	if e.sender == nil {
		return err
	}
	if sendErr := e.sender.Send(ctx, in.ActorID, out); sendErr != nil {
		e.logger.Error("deliver reply", zap.String("actor", in.ActorID), zap.Error(sendErr))
	}
	return err
}

// Handle runs one message through the state machine. Callers must serialize
// calls for the same actor; Process does. An error means nothing was persisted.
func (e *Engine) Handle(ctx context.Context, in message.Inbound) (message.Outbound, error) {
	phone := strings.TrimSpace(in.ActorID)
	if phone == "" {
		return nil, fmt.Errorf("inbound message without actor id")
	}
	actor, err := e.actors.GetOrCreate(ctx, phone, strings.TrimSpace(in.NameHint))
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if actor.Locale != "" && i18n.Supported(actor.Locale) {
		ctx = i18n.WithLocale(ctx, actor.Locale)
	}
	actor.LastActivity = e.now()

	if actor.State == model.StateNew {
		out := e.onboard(ctx, actor)
		return out, e.save(ctx, actor)
	}

	text := strings.TrimSpace(in.Text)
	if text == "" && in.Media != nil {
		text = strings.TrimSpace(in.Media.Caption)
	}
	req := &Request{Actor: actor, Text: text, Command: normalize(text), Media: in.Media}

	if out, ok := e.global(ctx, req); ok {
		return out, e.save(ctx, actor)
	}

	h, ok := e.registry.Lookup(actor.State)
	if !ok {
		e.logger.Error("unknown conversation state, resetting to menu",
			zap.String("actor", actor.Phone),
			zap.String("state", string(actor.State)))
		actor.Scratch.Clear()
		actor.State = model.StateMenu
		out := e.menuView(ctx, actor, i18n.T(ctx, "error.unknown_state"))
		return out, e.save(ctx, actor)
	}

	out, next, err := e.run(ctx, h, req)
	if err != nil {
		// state and scratch stay as loaded so the user can retry
		e.logger.Error("state handler failed",
			zap.String("actor", actor.Phone),
			zap.String("state", string(actor.State)),
			zap.Error(err))
		return message.Text{Body: i18n.T(ctx, "error.generic")}, nil
	}
	e.transition(actor, next)
	return out, e.save(ctx, actor)
}

// run calls h and turns a panic into an error so the turn fails without a save.
func (e *Engine) run(ctx context.Context, h HandlerFunc, req *Request) (out message.Outbound, next model.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("state handler panicked",
				zap.String("actor", req.Actor.Phone),
				zap.Any("panic", r),
				zap.Stack("stack"))
			out, next, err = nil, "", fmt.Errorf("panic in state %s: %v", req.Actor.State, r)
		}
	}()
	return h(ctx, req)
}

// transition moves to next and drops a draft owned by a workflow the actor has left.
func (e *Engine) transition(actor *model.Actor, next model.State) {
	actor.State = next
	if d := actor.Scratch.Draft; d != nil && d.Workflow != next.Workflow() {
		actor.Scratch.ClearDraft()
	}
}

func (e *Engine) save(ctx context.Context, actor *model.Actor) error {
	if err := e.actors.SaveSession(ctx, actor); err != nil {
		return fmt.Errorf("persist actor: %w", err)
	}
	return nil
}

// global answers the commands recognized in every state. ok is false when the
// input should go to the state handler instead.
func (e *Engine) global(ctx context.Context, req *Request) (message.Outbound, bool) {
	actor := req.Actor
	switch {
	case matches(req.Command, helpWords):
		return message.Text{Body: e.help(ctx, actor)}, true
	case matches(req.Command, statusWords):
		return message.Text{Body: e.status(ctx, actor)}, true
	case matches(req.Command, cancelWords) && actor.State.Cancelable():
		e.transition(actor, model.StateMenu)
		return e.menuView(ctx, actor, i18n.T(ctx, "common.cancelled")), true
	case matches(req.Command, menuWords):
		actor.Scratch.ClearNav()
		e.transition(actor, model.StateMenu)
		return e.menuView(ctx, actor, ""), true
	}
	return nil, false
}

var (
	helpWords   = []string{"help", "?", "ajuda"}
	statusWords = []string{"status", "where am i", "onde estou", "contexto"}
	cancelWords = []string{"cancel", "cancelar"}
	menuWords   = []string{"menu", "back", "0", "voltar", "inicio", "início"}
	skipWords   = []string{"skip", "pular", "-"}
)

func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func matches(cmd string, words []string) bool {
	return slices.Contains(words, cmd)
}
