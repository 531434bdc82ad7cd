package workflow

import (
	"context"
	"errors"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
)

func (e *Engine) showPresence(ctx context.Context, req *Request, notice string) (message.Outbound, model.State, error) {
	actor := req.Actor
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return out, next, err
	}
	p, err := e.svc.Attendance.Today(ctx, actor.ID, site.ID)
	if err != nil {
		return nil, actor.State, err
	}
	body := e.presenceLine(ctx, p) + "\n" + i18n.T(ctx, "presence.break", map[string]any{
		"From": site.BreakStart,
		"To":   site.BreakEnd,
	})
	return withNotice(message.Choice{
		Title: i18n.T(ctx, "presence.title", map[string]any{"Site": site.Name}),
		Body:  body,
		Options: []message.Option{
			{ID: "1", Label: i18n.T(ctx, "presence.check_in")},
			{ID: "2", Label: i18n.T(ctx, "presence.check_out")},
		},
		Footer: i18n.T(ctx, "common.back_hint"),
	}, notice), model.StateRegisteringPresence, nil
}

func (e *Engine) presence(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	switch {
	case req.Command == "1" || matches(req.Command, checkInWords):
		return e.checkIn(ctx, req)
	case req.Command == "2" || matches(req.Command, checkOutWords):
		return e.checkOut(ctx, req)
	}
	return e.showPresence(ctx, req, i18n.T(ctx, "common.pick_option"))
}

func (e *Engine) checkIn(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return out, next, err
	}
	rec, err := e.svc.Attendance.CheckIn(ctx, actor.ID, site.ID)
	if errors.Is(err, service.ErrAlreadyOpen) {
		return e.showPresence(ctx, req, i18n.T(ctx, "presence.already_open"))
	}
	if err != nil {
		return nil, actor.State, err
	}
	return e.menuView(ctx, actor, i18n.T(ctx, "presence.checked_in", map[string]any{
		"Time": e.clock(rec.CheckIn),
		"Site": site.Name,
	})), model.StateInSite, nil
}

func (e *Engine) checkOut(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return out, next, err
	}
	rec, err := e.svc.Attendance.CheckOut(ctx, actor.ID, site.ID)
	if errors.Is(err, service.ErrNoOpenRecord) {
		return e.showPresence(ctx, req, i18n.T(ctx, "presence.not_open"))
	}
	if err != nil {
		return nil, actor.State, err
	}

	noticeID := "presence.checked_out"
	switch {
	case rec.Anomaly:
		noticeID = "presence.checked_out_anomaly"
	case rec.BreakDeducted:
		noticeID = "presence.checked_out_break"
	}
	return e.menuView(ctx, actor, i18n.T(ctx, noticeID, map[string]any{
		"Time":  e.clock(*rec.CheckOut),
		"Hours": hours(rec.WorkedHours),
		"Break": site.BreakMinutes,
	})), model.StateInSite, nil
}
