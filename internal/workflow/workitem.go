package workflow

import (
	"context"
	"strings"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
)

// previewLimit caps how many unit labels the batch preview spells out.
const previewLimit = 12

func (e *Engine) promptItemTitle(ctx context.Context, site *model.Site) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "item.ask_title", map[string]any{"Site": site.Name})}
}

func (e *Engine) promptItemLocation(ctx context.Context) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "item.ask_location", map[string]any{
		"Max":      e.svc.Options.MaxBatchSpan,
		"PerFloor": e.svc.Options.UnitsPerFloor,
	})}
}

func (e *Engine) promptItemPhase(ctx context.Context) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "item.ask_phase")}
}

func (e *Engine) promptItemDeadline(ctx context.Context) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "item.ask_deadline")}
}

func (e *Engine) itemTitle(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	if len([]rune(req.Text)) < 2 {
		site, out, next, err := e.activeSite(ctx, req.Actor)
		if site == nil {
			return out, next, err
		}
		return stay(ctx, req, "validation.title_short", e.promptItemTitle(ctx, site))
	}
	d := wizardDraft(req.Actor, model.WorkflowWorkItem)
	d.WorkItem.Title = req.Text
	return e.promptItemLocation(ctx), model.StateCreatingItemLocation, nil
}

func (e *Engine) itemLocation(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	units, err := service.ParseUnits(req.Text, e.svc.Options.MaxBatchSpan, e.svc.Options.UnitsPerFloor)
	if err != nil {
		return retry(ctx, req, err, e.promptItemLocation(ctx))
	}
	d := wizardDraft(req.Actor, model.WorkflowWorkItem)
	d.WorkItem.Location = req.Text
	d.WorkItem.Units = units
	return e.promptItemPhase(ctx), model.StateCreatingItemPhase, nil
}

func (e *Engine) itemPhase(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	d := wizardDraft(req.Actor, model.WorkflowWorkItem)
	d.WorkItem.Phase = ""
	if !matches(req.Command, skipWords) {
		d.WorkItem.Phase = req.Text
	}
	return e.promptItemDeadline(ctx), model.StateCreatingItemDeadline, nil
}

func (e *Engine) itemDeadline(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	deadline, err := service.ParseDeadline(req.Text, e.now(), e.svc.Options.Location)
	if err != nil {
		return retry(ctx, req, err, e.promptItemDeadline(ctx))
	}
	d := wizardDraft(req.Actor, model.WorkflowWorkItem)
	d.WorkItem.Deadline = deadline
	return e.promptItemPreview(ctx, d.WorkItem), model.StateCreatingItemPreview, nil
}

func (e *Engine) promptItemPreview(ctx context.Context, d *model.WorkItemDraft) message.Outbound {
	units := d.Units
	if len(units) == 0 {
		units = []string{""}
	}
	labels := make([]string, 0, min(len(units), previewLimit))
	for _, u := range units[:min(len(units), previewLimit)] {
		if u == "" {
			u = i18n.T(ctx, "item.no_unit")
		}
		labels = append(labels, u)
	}
	unitText := strings.Join(labels, ", ")
	if len(units) > previewLimit {
		unitText += " " + i18n.T(ctx, "item.preview_more", map[string]any{"Count": len(units) - previewLimit})
	}

	lines := []string{
		i18n.T(ctx, "item.preview_title", map[string]any{"Title": d.Title}),
		i18n.T(ctx, "item.preview_units", map[string]any{"Count": len(units), "Units": unitText}),
	}
	if d.Phase != "" {
		lines = append(lines, i18n.T(ctx, "item.preview_phase", map[string]any{"Phase": d.Phase}))
	}
	if d.Deadline != nil {
		lines = append(lines, i18n.T(ctx, "item.preview_deadline", map[string]any{"Date": e.date(*d.Deadline)}))
	}
	return message.Choice{
		Title: i18n.T(ctx, "item.preview_header"),
		Body:  strings.Join(lines, "\n"),
		Options: []message.Option{
			{ID: "1", Label: i18n.T(ctx, "common.confirm")},
			{ID: "2", Label: i18n.T(ctx, "common.edit")},
			{ID: "3", Label: i18n.T(ctx, "common.cancel")},
		},
	}
}

func (e *Engine) itemPreview(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	d := wizardDraft(actor, model.WorkflowWorkItem)
	switch req.Command {
	case "1":
		site, out, next, err := e.managedSite(ctx, actor)
		if site == nil {
			return out, next, err
		}
		items, err := e.svc.Pool.CreateBatch(ctx, site.ID, actor.ID, *d.WorkItem)
		if ve, ok := service.AsValidation(err); ok {
			actor.Scratch.Draft = model.NewDraft(model.WorkflowWorkItem)
			return withNotice(e.promptItemTitle(ctx, site), i18n.T(ctx, ve.MessageID, ve.Data)), model.StateCreatingItemTitle, nil
		}
		if err != nil {
			return nil, actor.State, err
		}
		return e.menuView(ctx, actor, i18n.T(ctx, "item.created", map[string]any{
			"Count": len(items),
			"Title": d.WorkItem.Title,
		})), model.StateInSite, nil
	case "2":
		site, out, next, err := e.activeSite(ctx, actor)
		if site == nil {
			return out, next, err
		}
		actor.Scratch.Draft = model.NewDraft(model.WorkflowWorkItem)
		return e.promptItemTitle(ctx, site), model.StateCreatingItemTitle, nil
	case "3":
		actor.Scratch.ClearDraft()
		return e.home(ctx, actor, i18n.T(ctx, "common.cancelled"))
	}
	return stay(ctx, req, "common.pick_option", e.promptItemPreview(ctx, d.WorkItem))
}
