package workflow

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
)

// itemLine is the one-line description used in pick lists.
func (e *Engine) itemLine(ctx context.Context, item *model.WorkItem) string {
	parts := []string{item.Title}
	if item.Unit != "" {
		parts = append(parts, item.Unit)
	}
	if item.Phase != "" {
		parts = append(parts, item.Phase)
	}
	line := strings.Join(parts, " · ")
	if item.Deadline != nil {
		line += " · " + e.date(*item.Deadline)
		switch service.Urgency(item.Deadline, e.now(), e.svc.Options.Location) {
		case service.DeadlineOverdue:
			line += " " + i18n.T(ctx, "item.overdue")
		case service.DeadlineToday:
			line += " " + i18n.T(ctx, "item.due_today")
		case service.DeadlineSoon:
			line += " " + i18n.T(ctx, "item.due_soon")
		}
	}
	return line
}

func (e *Engine) itemList(ctx context.Context, actor *model.Actor, items []*model.WorkItem) string {
	nav := actor.Scratch.Navigation()
	nav.ItemIDs = make([]bson.ObjectID, 0, len(items))
	nav.ItemID = nil
	lines := make([]string, 0, len(items))
	for _, it := range items {
		nav.ItemIDs = append(nav.ItemIDs, it.ID)
		lines = append(lines, e.itemLine(ctx, it))
	}
	return numbered(lines)
}

func (e *Engine) showMyItems(ctx context.Context, req *Request, notice string) (message.Outbound, model.State, error) {
	actor := req.Actor
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return out, next, err
	}
	items, err := e.svc.Pool.ListHeld(ctx, actor.ID, &site.ID)
	if err != nil {
		return nil, actor.State, err
	}
	if len(items) == 0 {
		actor.Scratch.ClearNav()
		if notice != "" {
			notice += "\n\n"
		}
		return e.home(ctx, actor, notice+i18n.T(ctx, "item.mine_empty"))
	}
	body := i18n.T(ctx, "item.mine_header", map[string]any{"Count": len(items)}) + "\n\n" +
		e.itemList(ctx, actor, items) + "\n\n" + i18n.T(ctx, "item.mine_hint")
	return withNotice(message.Text{Body: body}, notice), model.StateViewingMyItems, nil
}

func (e *Engine) showPool(ctx context.Context, req *Request, notice string) (message.Outbound, model.State, error) {
	actor := req.Actor
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return out, next, err
	}
	items, err := e.svc.Pool.ListPool(ctx, site.ID)
	if err != nil {
		return nil, actor.State, err
	}
	if len(items) == 0 {
		actor.Scratch.ClearNav()
		if notice != "" {
			notice += "\n\n"
		}
		return e.home(ctx, actor, notice+i18n.T(ctx, "item.pool_empty"))
	}
	body := i18n.T(ctx, "item.pool_header", map[string]any{"Count": len(items), "Site": site.Name}) + "\n\n" +
		e.itemList(ctx, actor, items) + "\n\n" + i18n.T(ctx, "item.pool_hint")
	return withNotice(message.Text{Body: body}, notice), model.StateBrowsingPool, nil
}

func (e *Engine) pickMyItem(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	nav := req.Actor.Scratch.Navigation()
	i, ok := parseIndex(req.Command, len(nav.ItemIDs))
	if !ok {
		return e.showMyItems(ctx, req, i18n.T(ctx, "common.pick_number"))
	}
	id := nav.ItemIDs[i]
	nav.ItemID = &id
	return e.showItem(ctx, req, "")
}

// pickPoolItem claims the chosen item. Losing the race shows the refreshed pool.
func (e *Engine) pickPoolItem(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	nav := actor.Scratch.Navigation()
	i, ok := parseIndex(req.Command, len(nav.ItemIDs))
	if !ok {
		return e.showPool(ctx, req, i18n.T(ctx, "common.pick_number"))
	}
	item, err := e.svc.Pool.Claim(ctx, nav.ItemIDs[i], actor.ID)
	if errors.Is(err, service.ErrUnavailable) {
		return e.showPool(ctx, req, i18n.T(ctx, "item.claim_lost"))
	}
	if err != nil {
		return nil, actor.State, err
	}
	nav.ItemID = &item.ID
	return e.showItem(ctx, req, i18n.T(ctx, "item.claimed", map[string]any{"Item": e.itemLine(ctx, item)}))
}

func (e *Engine) promptManageItem(ctx context.Context, item *model.WorkItem) message.Choice {
	body := []string{e.itemLine(ctx, item)}
	if item.ClaimedAt != nil {
		body = append(body, i18n.T(ctx, "item.claimed_at", map[string]any{
			"Date": e.date(*item.ClaimedAt),
			"Time": e.clock(*item.ClaimedAt),
		}))
	}
	return message.Choice{
		Title: i18n.T(ctx, "item.manage_title"),
		Body:  strings.Join(body, "\n"),
		Options: []message.Option{
			{ID: "1", Label: i18n.T(ctx, "item.complete")},
			{ID: "2", Label: i18n.T(ctx, "item.report_problem")},
			{ID: "3", Label: i18n.T(ctx, "common.back")},
		},
	}
}

// showItem renders the selected item; a missing selection falls back to the list.
func (e *Engine) showItem(ctx context.Context, req *Request, notice string) (message.Outbound, model.State, error) {
	nav := req.Actor.Scratch.Navigation()
	if nav.ItemID == nil {
		return e.showMyItems(ctx, req, notice)
	}
	item, err := e.svc.Pool.Get(ctx, *nav.ItemID)
	if errors.Is(err, service.ErrNotFound) || (err == nil && !item.HeldBy(req.Actor.ID)) {
		return e.showMyItems(ctx, req, i18n.T(ctx, "item.not_yours"))
	}
	if err != nil {
		return nil, req.Actor.State, err
	}
	return withNotice(e.promptManageItem(ctx, item), notice), model.StateManagingItem, nil
}

func (e *Engine) manageItem(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	nav := actor.Scratch.Navigation()
	if nav.ItemID == nil {
		return e.showMyItems(ctx, req, "")
	}
	switch req.Command {
	case "1":
		item, err := e.svc.Pool.Complete(ctx, *nav.ItemID, actor.ID)
		switch {
		case errors.Is(err, service.ErrAlreadyTerminal):
			return e.showMyItems(ctx, req, i18n.T(ctx, "item.already_done"))
		case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrForbidden):
			return e.showMyItems(ctx, req, i18n.T(ctx, "item.not_yours"))
		case err != nil:
			return nil, actor.State, err
		}
		return e.showMyItems(ctx, req, i18n.T(ctx, "item.completed", map[string]any{"Item": e.itemLine(ctx, item)}))
	case "2":
		site, out, next, err := e.activeSite(ctx, actor)
		if site == nil {
			return out, next, err
		}
		d := model.NewDraft(model.WorkflowProblem)
		id := *nav.ItemID
		d.Problem.WorkItemID = &id
		actor.Scratch.Draft = d
		return e.promptProblemDescription(ctx), model.StateReportingProblemDescription, nil
	case "3":
		return e.showMyItems(ctx, req, "")
	}
	out, next, err := e.showItem(ctx, req, "")
	if err != nil || next != model.StateManagingItem {
		return out, next, err
	}
	return withNotice(out, i18n.T(ctx, "common.pick_option")), next, nil
}
