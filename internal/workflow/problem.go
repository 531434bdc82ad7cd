package workflow

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
)

func (e *Engine) promptProblemDescription(ctx context.Context) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "problem.ask_description")}
}

func (e *Engine) promptProblemPhoto(ctx context.Context) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "problem.ask_photo")}
}

func (e *Engine) problemDescription(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	if err := service.ValidateProblemDescription(req.Text); err != nil {
		return retry(ctx, req, err, e.promptProblemDescription(ctx))
	}
	d := wizardDraft(req.Actor, model.WorkflowProblem)
	d.Problem.Description = req.Text
	if req.Media != nil {
		// a photo sent with a caption answers both steps at once
		return e.commitProblem(ctx, req)
	}
	return e.promptProblemPhoto(ctx), model.StateReportingProblemPhoto, nil
}

func (e *Engine) problemPhoto(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	if req.Media == nil && !matches(req.Command, skipWords) {
		return stay(ctx, req, "problem.photo_expected", e.promptProblemPhoto(ctx))
	}
	return e.commitProblem(ctx, req)
}

func (e *Engine) commitProblem(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return out, next, err
	}
	d := wizardDraft(actor, model.WorkflowProblem)

	var photoURL string
	if req.Media != nil {
		photoURL, err = e.media.Resolve(ctx, req.Media)
		if err != nil {
			e.logger.Warn("resolve problem photo", zap.String("actor", actor.Phone), zap.Error(err))
			return stay(ctx, req, "problem.photo_failed", e.promptProblemPhoto(ctx))
		}
	}

	p, err := e.svc.Problems.Report(ctx, actor.ID, site.ID, *d.Problem, photoURL)
	if ve, ok := service.AsValidation(err); ok {
		actor.Scratch.Draft = model.NewDraft(model.WorkflowProblem)
		actor.Scratch.Draft.Problem.WorkItemID = d.Problem.WorkItemID
		return withNotice(e.promptProblemDescription(ctx), i18n.T(ctx, ve.MessageID, ve.Data)), model.StateReportingProblemDescription, nil
	}
	if err != nil {
		return nil, actor.State, err
	}

	notice := i18n.T(ctx, "problem.reported", map[string]any{"Site": site.Name})
	actor.Scratch.ClearDraft()
	if p.WorkItemID != nil {
		id := *p.WorkItemID
		actor.Scratch.Navigation().ItemID = &id
		return e.showItem(ctx, req, notice)
	}
	return e.menuView(ctx, actor, notice), model.StateInSite, nil
}

func (e *Engine) problemLine(ctx context.Context, p *model.ProblemReport) string {
	desc := p.Description
	if r := []rune(desc); len(r) > 60 {
		desc = string(r[:57]) + "..."
	}
	line := desc + " · " + i18n.T(ctx, "problem.status."+string(p.Status)) + " · " + e.date(p.CreatedAt)
	if p.PhotoURL != "" {
		line += " 📷"
	}
	return line
}

func (e *Engine) showProblems(ctx context.Context, req *Request, notice string) (message.Outbound, model.State, error) {
	actor := req.Actor
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return out, next, err
	}
	problems, err := e.svc.Problems.ListOpen(ctx, site.ID)
	if err != nil {
		return nil, actor.State, err
	}
	if len(problems) == 0 {
		actor.Scratch.ClearNav()
		if notice != "" {
			notice += "\n\n"
		}
		return e.home(ctx, actor, notice+i18n.T(ctx, "problem.none_open"))
	}

	nav := actor.Scratch.Navigation()
	nav.ProblemIDs = make([]bson.ObjectID, 0, len(problems))
	nav.ProblemID = nil
	lines := make([]string, 0, len(problems))
	for _, p := range problems {
		nav.ProblemIDs = append(nav.ProblemIDs, p.ID)
		lines = append(lines, e.problemLine(ctx, p))
	}
	body := i18n.T(ctx, "problem.list_header", map[string]any{"Count": len(problems), "Site": site.Name}) +
		"\n\n" + numbered(lines) + "\n\n" + i18n.T(ctx, "problem.list_hint")
	return withNotice(message.Text{Body: body}, notice), model.StateViewingProblems, nil
}

func (e *Engine) pickProblem(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	nav := req.Actor.Scratch.Navigation()
	i, ok := parseIndex(req.Command, len(nav.ProblemIDs))
	if !ok {
		return e.showProblems(ctx, req, i18n.T(ctx, "common.pick_number"))
	}
	id := nav.ProblemIDs[i]
	nav.ProblemID = &id
	return e.showProblem(ctx, req, "")
}

func (e *Engine) showProblem(ctx context.Context, req *Request, notice string) (message.Outbound, model.State, error) {
	actor := req.Actor
	nav := actor.Scratch.Navigation()
	if nav.ProblemID == nil {
		return e.showProblems(ctx, req, notice)
	}
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return out, next, err
	}
	p, err := e.svc.Problems.Get(ctx, *nav.ProblemID)
	if errors.Is(err, service.ErrNotFound) {
		return e.showProblems(ctx, req, i18n.T(ctx, "problem.gone"))
	}
	if err != nil {
		return nil, actor.State, err
	}

	body := []string{
		p.Description,
		i18n.T(ctx, "problem.detail_status", map[string]any{"Status": i18n.T(ctx, "problem.status."+string(p.Status))}),
		i18n.T(ctx, "problem.detail_reported", map[string]any{"Date": e.date(p.CreatedAt), "Time": e.clock(p.CreatedAt)}),
	}
	if reporter, err := e.actors.GetByID(ctx, p.ReporterID); err == nil && reporter != nil {
		body = append(body, i18n.T(ctx, "problem.detail_reporter", map[string]any{"Name": reporter.DisplayName()}))
	}
	if p.WorkItemID != nil {
		if item, err := e.svc.Pool.Get(ctx, *p.WorkItemID); err == nil {
			body = append(body, i18n.T(ctx, "problem.detail_item", map[string]any{"Item": e.itemLine(ctx, item)}))
		}
	}
	if p.PhotoURL != "" {
		body = append(body, p.PhotoURL)
	}

	var opts []message.Option
	if service.CanManage(actor, site) {
		opts = append(opts,
			message.Option{ID: "1", Label: i18n.T(ctx, "problem.mark_in_review")},
			message.Option{ID: "2", Label: i18n.T(ctx, "problem.mark_resolved")},
		)
	}
	opts = append(opts, message.Option{ID: "3", Label: i18n.T(ctx, "common.back")})

	return withNotice(message.Choice{
		Title:   i18n.T(ctx, "problem.detail_title"),
		Body:    strings.Join(body, "\n"),
		Options: opts,
	}, notice), model.StateViewingProblem, nil
}

// triageProblem lets site managers move a report forward; everyone else can only go back.
func (e *Engine) triageProblem(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	nav := actor.Scratch.Navigation()
	var status model.ProblemStatus
	switch req.Command {
	case "1":
		status = model.ProblemInReview
	case "2":
		status = model.ProblemResolved
	case "3":
		return e.showProblems(ctx, req, "")
	default:
		return e.showProblem(ctx, req, i18n.T(ctx, "common.pick_option"))
	}
	if nav.ProblemID == nil {
		return e.showProblems(ctx, req, "")
	}
	site, out, next, err := e.activeSite(ctx, actor)
	if site == nil {
		return out, next, err
	}

	p, err := e.svc.Problems.SetStatus(ctx, actor, site, *nav.ProblemID, status)
	switch {
	case errors.Is(err, service.ErrForbidden):
		return e.showProblem(ctx, req, i18n.T(ctx, "site.manager_only"))
	case errors.Is(err, service.ErrNotFound):
		return e.showProblems(ctx, req, i18n.T(ctx, "problem.gone"))
	case err != nil:
		return nil, actor.State, err
	}
	notice := i18n.T(ctx, "problem.status_changed", map[string]any{"Status": i18n.T(ctx, "problem.status."+string(p.Status))})
	if p.Status == model.ProblemResolved {
		return e.showProblems(ctx, req, notice)
	}
	return e.showProblem(ctx, req, notice)
}
