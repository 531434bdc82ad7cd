package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
)

func (e *Engine) clock(t time.Time) string {
	return t.In(e.svc.Options.Location).Format("15:04")
}

func (e *Engine) date(t time.Time) string {
	return t.In(e.svc.Options.Location).Format("02/01/2006")
}

// retry answers a validation failure with its explanation and the step's prompt
// again; the state does not move. Other errors propagate to the engine.
func retry(ctx context.Context, req *Request, err error, prompt message.Outbound) (message.Outbound, model.State, error) {
	ve, ok := service.AsValidation(err)
	if !ok {
		return nil, req.Actor.State, err
	}
	return withNotice(prompt, i18n.T(ctx, ve.MessageID, ve.Data)), req.Actor.State, nil
}

// stay re-prompts the current step with a localized notice.
func stay(ctx context.Context, req *Request, noticeID string, prompt message.Outbound) (message.Outbound, model.State, error) {
	return withNotice(prompt, i18n.T(ctx, noticeID)), req.Actor.State, nil
}

// home returns to the menu, or to the site view when a site is active.
func (e *Engine) home(ctx context.Context, actor *model.Actor, notice string) (message.Outbound, model.State, error) {
	next := model.StateMenu
	if _, ok := actor.ActiveSite(); ok {
		next = model.StateInSite
	}
	return e.menuView(ctx, actor, notice), next, nil
}

// activeSite resolves the actor's site for a step that needs one. When there is
// none, site is nil and out/next lead back to the menu; a stale selection is dropped.
func (e *Engine) activeSite(ctx context.Context, actor *model.Actor) (site *model.Site, out message.Outbound, next model.State, err error) {
	site, err = e.svc.Sites.Active(ctx, actor)
	switch {
	case err == nil:
		return site, nil, actor.State, nil
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNotMember):
		noticeID := "site.none_active"
		if _, ok := actor.ActiveSite(); ok {
			noticeID = "site.gone"
			actor.SubState = ""
		}
		actor.Scratch.Clear()
		return nil, e.menuView(ctx, actor, i18n.T(ctx, noticeID)), model.StateMenu, nil
	}
	return nil, nil, actor.State, err
}

// managedSite is activeSite restricted to actors allowed to manage it.
func (e *Engine) managedSite(ctx context.Context, actor *model.Actor) (*model.Site, message.Outbound, model.State, error) {
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return nil, out, next, err
	}
	if !service.CanManage(actor, site) {
		actor.Scratch.ClearDraft()
		out, next, err = e.home(ctx, actor, i18n.T(ctx, "site.manager_only"))
		return nil, out, next, err
	}
	return site, nil, next, nil
}

// wizardDraft returns the actor's draft for w, starting a fresh one if the
// scratch was lost or belongs elsewhere.
func wizardDraft(actor *model.Actor, w model.Workflow) *model.Draft {
	if d := actor.Scratch.DraftFor(w); d != nil {
		return d
	}
	actor.Scratch.Draft = model.NewDraft(w)
	return actor.Scratch.Draft
}

func yesNo(ctx context.Context, title, body, yesID, noID string) message.Choice {
	return message.Choice{
		Title: title,
		Body:  body,
		Options: []message.Option{
			{ID: "1", Label: i18n.T(ctx, yesID)},
			{ID: "2", Label: i18n.T(ctx, noID)},
		},
	}
}
