package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
	"github.com/Gustavoab019/startia/internal/worktime"
)

func (e *Engine) promptSiteName(ctx context.Context) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "site.ask_name")}
}

func (e *Engine) promptSiteAddress(ctx context.Context) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "site.ask_address")}
}

func (e *Engine) promptBreakChoice(ctx context.Context) message.Outbound {
	from, to := e.svc.Sites.DefaultBreak()
	return message.Choice{
		Title: i18n.T(ctx, "site.break_title"),
		Body:  i18n.T(ctx, "site.break_body"),
		Options: []message.Option{
			{ID: "1", Label: i18n.T(ctx, "site.break_custom")},
			{ID: "2", Label: i18n.T(ctx, "site.break_default", map[string]any{"From": from, "To": to})},
		},
	}
}

func (e *Engine) siteName(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	if err := service.ValidateSiteName(req.Text); err != nil {
		return retry(ctx, req, err, e.promptSiteName(ctx))
	}
	d := wizardDraft(req.Actor, model.WorkflowSite)
	d.Site.Name = strings.TrimSpace(req.Text)
	return e.promptSiteAddress(ctx), model.StateCreatingSiteAddress, nil
}

func (e *Engine) siteAddress(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	if err := service.ValidateSiteAddress(req.Text); err != nil {
		return retry(ctx, req, err, e.promptSiteAddress(ctx))
	}
	d := wizardDraft(req.Actor, model.WorkflowSite)
	d.Site.Address = strings.TrimSpace(req.Text)
	return e.promptBreakChoice(ctx), model.StateCreatingSiteBreakChoice, nil
}

func (e *Engine) siteBreakChoice(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	switch req.Command {
	case "1":
		return message.Text{Body: i18n.T(ctx, "site.ask_break_start")}, model.StateCreatingSiteBreakStart, nil
	case "2":
		d := wizardDraft(req.Actor, model.WorkflowSite)
		d.Site.BreakStart, d.Site.BreakEnd = e.svc.Sites.DefaultBreak()
		return e.finishSite(ctx, req)
	}
	return stay(ctx, req, "common.pick_option", e.promptBreakChoice(ctx))
}

func (e *Engine) siteBreakStart(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	prompt := message.Text{Body: i18n.T(ctx, "site.ask_break_start")}
	m, err := worktime.ParseClock(req.Text)
	if err != nil {
		return stay(ctx, req, "validation.clock_format", prompt)
	}
	d := wizardDraft(req.Actor, model.WorkflowSite)
	d.Site.BreakStart = worktime.FormatClock(m)
	return message.Text{Body: i18n.T(ctx, "site.ask_break_end", map[string]any{"From": d.Site.BreakStart})}, model.StateCreatingSiteBreakEnd, nil
}

func (e *Engine) siteBreakEnd(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	d := wizardDraft(req.Actor, model.WorkflowSite)
	if d.Site.BreakStart == "" {
		return message.Text{Body: i18n.T(ctx, "site.ask_break_start")}, model.StateCreatingSiteBreakStart, nil
	}
	prompt := message.Text{Body: i18n.T(ctx, "site.ask_break_end", map[string]any{"From": d.Site.BreakStart})}
	if err := service.ValidateBreak(d.Site.BreakStart, req.Text); err != nil {
		return retry(ctx, req, err, prompt)
	}
	m, _ := worktime.ParseClock(req.Text)
	d.Site.BreakEnd = worktime.FormatClock(m)
	return e.finishSite(ctx, req)
}

// finishSite asks for confirmation when the actor already has a site with the
// same name, and creates the site otherwise.
func (e *Engine) finishSite(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	d := wizardDraft(req.Actor, model.WorkflowSite)
	dup, err := e.svc.Sites.HasSiteNamed(ctx, req.Actor, d.Site.Name)
	if err != nil {
		return nil, req.Actor.State, err
	}
	if dup {
		return e.promptDuplicate(ctx, d.Site.Name), model.StateCreatingSiteConfirmDuplicate, nil
	}
	return e.commitSite(ctx, req)
}

func (e *Engine) promptDuplicate(ctx context.Context, name string) message.Outbound {
	return yesNo(ctx,
		i18n.T(ctx, "site.duplicate_title"),
		i18n.T(ctx, "site.duplicate_body", map[string]any{"Name": name}),
		"site.duplicate_create", "common.cancel")
}

func (e *Engine) siteConfirmDuplicate(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	switch req.Command {
	case "1":
		return e.commitSite(ctx, req)
	case "2":
		req.Actor.Scratch.ClearDraft()
		return e.home(ctx, req.Actor, i18n.T(ctx, "common.cancelled"))
	}
	d := wizardDraft(req.Actor, model.WorkflowSite)
	return stay(ctx, req, "common.pick_option", e.promptDuplicate(ctx, d.Site.Name))
}

func (e *Engine) commitSite(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	d := wizardDraft(actor, model.WorkflowSite)
	site, err := e.svc.Sites.Create(ctx, actor, *d.Site)
	if ve, ok := service.AsValidation(err); ok {
		// the draft was incomplete; start over from the name
		actor.Scratch.Draft = model.NewDraft(model.WorkflowSite)
		return withNotice(e.promptSiteName(ctx), i18n.T(ctx, ve.MessageID, ve.Data)), model.StateCreatingSiteName, nil
	}
	if errors.Is(err, service.ErrDuplicateCode) {
		return stay(ctx, req, "site.code_exhausted", message.Text{Body: i18n.T(ctx, "common.try_again")})
	}
	if err != nil {
		return nil, actor.State, err
	}
	notice := i18n.T(ctx, "site.created", map[string]any{
		"Name":  site.Name,
		"Code":  site.AccessCode,
		"From":  site.BreakStart,
		"To":    site.BreakEnd,
		"Break": site.BreakMinutes,
	})
	return e.menuView(ctx, actor, notice), model.StateInSite, nil
}

func (e *Engine) joinSite(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Text))
	prompt := message.Text{Body: i18n.T(ctx, "site.join_prompt")}
	if code == "" {
		return prompt, req.Actor.State, nil
	}
	site, err := e.svc.Sites.Join(ctx, req.Actor, code)
	if errors.Is(err, service.ErrNotFound) {
		return withNotice(prompt, i18n.T(ctx, "site.join_not_found", map[string]any{"Code": code})), req.Actor.State, nil
	}
	if err != nil {
		return nil, req.Actor.State, err
	}
	return e.menuView(ctx, req.Actor, i18n.T(ctx, "site.joined", map[string]any{"Name": site.Name})), model.StateInSite, nil
}
