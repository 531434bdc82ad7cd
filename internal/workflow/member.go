package workflow

import (
	"context"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
)

var roleWords = map[string]model.Role{
	"1":             model.RoleWorker,
	"worker":        model.RoleWorker,
	"trabalhador":   model.RoleWorker,
	"operario":      model.RoleWorker,
	"operário":      model.RoleWorker,
	"2":             model.RoleSupervisor,
	"supervisor":    model.RoleSupervisor,
	"encarregado":   model.RoleSupervisor,
	"chefe":         model.RoleSupervisor,
	"chefe de obra": model.RoleSupervisor,
}

func (e *Engine) promptMemberName(ctx context.Context, site *model.Site) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "member.ask_name", map[string]any{"Site": site.Name})}
}

func (e *Engine) promptMemberPhone(ctx context.Context, name string) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "member.ask_phone", map[string]any{"Name": name})}
}

func (e *Engine) promptMemberRole(ctx context.Context) message.Outbound {
	return message.Choice{
		Title: i18n.T(ctx, "member.ask_role"),
		Options: []message.Option{
			{ID: "1", Label: i18n.T(ctx, "role.worker")},
			{ID: "2", Label: i18n.T(ctx, "role.supervisor")},
		},
	}
}

func (e *Engine) promptMemberSpecialty(ctx context.Context) message.Outbound {
	return message.Text{Body: i18n.T(ctx, "member.ask_specialty")}
}

func (e *Engine) memberName(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	if err := service.ValidatePersonName(req.Text); err != nil {
		site, out, next, serr := e.activeSite(ctx, req.Actor)
		if site == nil {
			return out, next, serr
		}
		return retry(ctx, req, err, e.promptMemberName(ctx, site))
	}
	d := wizardDraft(req.Actor, model.WorkflowMember)
	d.Member.Name = req.Text
	return e.promptMemberPhone(ctx, req.Text), model.StateRegisteringMemberPhone, nil
}

func (e *Engine) memberPhone(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	d := wizardDraft(req.Actor, model.WorkflowMember)
	phone, err := e.svc.Crew.NormalizePhone(req.Text)
	if err != nil {
		return retry(ctx, req, err, e.promptMemberPhone(ctx, d.Member.Name))
	}
	d.Member.Phone = phone
	return e.promptMemberRole(ctx), model.StateRegisteringMemberRole, nil
}

func (e *Engine) memberRole(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	role, ok := roleWords[req.Command]
	if !ok {
		return stay(ctx, req, "validation.role", e.promptMemberRole(ctx))
	}
	d := wizardDraft(req.Actor, model.WorkflowMember)
	d.Member.Role = role
	return e.promptMemberSpecialty(ctx), model.StateRegisteringMemberSpecialty, nil
}

func (e *Engine) memberSpecialty(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	d := wizardDraft(actor, model.WorkflowMember)
	d.Member.Specialty = ""
	if !matches(req.Command, skipWords) {
		d.Member.Specialty = req.Text
	}

	site, out, next, err := e.managedSite(ctx, actor)
	if site == nil {
		return out, next, err
	}
	member, linked, err := e.svc.Crew.Register(ctx, site.ID, *d.Member)
	if ve, ok := service.AsValidation(err); ok {
		actor.Scratch.Draft = model.NewDraft(model.WorkflowMember)
		return withNotice(e.promptMemberName(ctx, site), i18n.T(ctx, ve.MessageID, ve.Data)), model.StateRegisteringMemberName, nil
	}
	if err != nil {
		return nil, actor.State, err
	}

	noticeID := "member.registered"
	if linked {
		noticeID = "member.linked"
	}
	notice := i18n.T(ctx, noticeID, map[string]any{
		"Name":  member.DisplayName(),
		"Phone": member.Phone,
		"Site":  site.Name,
		"Code":  site.AccessCode,
	})
	return e.menuView(ctx, actor, notice), model.StateMenu, nil
}
