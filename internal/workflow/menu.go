package workflow

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
)

func (e *Engine) registerHandlers() {
	r := e.registry
	r.Register(model.StateCollectingName, e.collectName)
	r.Register(model.StateMenu, e.handleMenu)
	r.Register(model.StateInSite, e.handleMenu)
	r.Register(model.StateViewingCrew, e.handleMenu)
	r.Register(model.StateSelectingSite, e.selectSite)

	r.Register(model.StateCreatingSiteName, e.siteName)
	r.Register(model.StateCreatingSiteAddress, e.siteAddress)
	r.Register(model.StateCreatingSiteBreakChoice, e.siteBreakChoice)
	r.Register(model.StateCreatingSiteBreakStart, e.siteBreakStart)
	r.Register(model.StateCreatingSiteBreakEnd, e.siteBreakEnd)
	r.Register(model.StateCreatingSiteConfirmDuplicate, e.siteConfirmDuplicate)
	r.Register(model.StateJoiningSite, e.joinSite)

	r.Register(model.StateCreatingItemTitle, e.itemTitle)
	r.Register(model.StateCreatingItemLocation, e.itemLocation)
	r.Register(model.StateCreatingItemPhase, e.itemPhase)
	r.Register(model.StateCreatingItemDeadline, e.itemDeadline)
	r.Register(model.StateCreatingItemPreview, e.itemPreview)

	r.Register(model.StateRegisteringMemberName, e.memberName)
	r.Register(model.StateRegisteringMemberPhone, e.memberPhone)
	r.Register(model.StateRegisteringMemberRole, e.memberRole)
	r.Register(model.StateRegisteringMemberSpecialty, e.memberSpecialty)

	r.Register(model.StateReportingProblemDescription, e.problemDescription)
	r.Register(model.StateReportingProblemPhoto, e.problemPhoto)

	r.Register(model.StateRegisteringPresence, e.presence)

	r.Register(model.StateViewingMyItems, e.pickMyItem)
	r.Register(model.StateBrowsingPool, e.pickPoolItem)
	r.Register(model.StateManagingItem, e.manageItem)
	r.Register(model.StateViewingProblems, e.pickProblem)
	r.Register(model.StateViewingProblem, e.triageProblem)
}

func (e *Engine) collectName(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	if err := service.ValidatePersonName(req.Text); err != nil {
		return retry(ctx, req, err, message.Text{Body: i18n.T(ctx, "onboarding.ask_name")})
	}
	req.Actor.Name = strings.TrimSpace(req.Text)
	e.logger.Info("actor onboarded", zap.String("actor", req.Actor.Phone))
	return e.menuView(ctx, req.Actor, i18n.T(ctx, "onboarding.done", map[string]any{"Name": req.Actor.Name})), model.StateMenu, nil
}

// shortcuts map typed words to menu options.
var shortcuts = map[string]string{
	"new site":       optCreateSite,
	"nova obra":      optCreateSite,
	"join":           optJoinSite,
	"entrar na obra": optJoinSite,
	"tasks":          optMyItems,
	"my tasks":       optMyItems,
	"tarefas":        optMyItems,
	"minhas tarefas": optMyItems,
	"pool":           optPool,
	"disponiveis":    optPool,
	"disponíveis":    optPool,
	"presence":       optPresence,
	"presença":       optPresence,
	"presenca":       optPresence,
	"ponto":          optPresence,
	"new tasks":      optCreateItems,
	"criar tarefas":  optCreateItems,
	"new member":     optRegisterMember,
	"cadastrar":      optRegisterMember,
	"team":           optCrew,
	"crew":           optCrew,
	"equipe":         optCrew,
	"problem":        optReportProblem,
	"problema":       optReportProblem,
	"problems":       optProblems,
	"problemas":      optProblems,
	"sites":          optSites,
	"obras":          optSites,
}

var (
	checkInWords  = []string{"check in", "checkin", "entrada", "cheguei"}
	checkOutWords = []string{"check out", "checkout", "saida", "saída", "sai"}
)

// handleMenu serves the menu, the site view and the crew view, which all accept
// menu options.
func (e *Engine) handleMenu(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	switch {
	case matches(req.Command, checkInWords):
		return e.checkIn(ctx, req)
	case matches(req.Command, checkOutWords):
		return e.checkOut(ctx, req)
	}
	opt := req.Command
	if o, ok := shortcuts[opt]; ok {
		opt = o
	}

	actor := req.Actor
	switch opt {
	case optCreateSite:
		actor.Scratch.Draft = model.NewDraft(model.WorkflowSite)
		return e.promptSiteName(ctx), model.StateCreatingSiteName, nil
	case optJoinSite:
		return message.Text{Body: i18n.T(ctx, "site.join_prompt")}, model.StateJoiningSite, nil
	case optMyItems:
		return e.showMyItems(ctx, req, "")
	case optPool:
		return e.showPool(ctx, req, "")
	case optPresence:
		return e.showPresence(ctx, req, "")
	case optCreateItems:
		site, out, next, err := e.managedSite(ctx, actor)
		if site == nil {
			return out, next, err
		}
		actor.Scratch.Draft = model.NewDraft(model.WorkflowWorkItem)
		return e.promptItemTitle(ctx, site), model.StateCreatingItemTitle, nil
	case optRegisterMember:
		site, out, next, err := e.managedSite(ctx, actor)
		if site == nil {
			return out, next, err
		}
		actor.Scratch.Draft = model.NewDraft(model.WorkflowMember)
		return e.promptMemberName(ctx, site), model.StateRegisteringMemberName, nil
	case optCrew:
		return e.showCrew(ctx, req)
	case optReportProblem:
		site, out, next, err := e.activeSite(ctx, actor)
		if site == nil {
			return out, next, err
		}
		actor.Scratch.Draft = model.NewDraft(model.WorkflowProblem)
		return e.promptProblemDescription(ctx), model.StateReportingProblemDescription, nil
	case optProblems:
		return e.showProblems(ctx, req, "")
	case optSites:
		return e.showSites(ctx, req)
	}
	return e.home(ctx, actor, i18n.T(ctx, "menu.unknown_option"))
}

func (e *Engine) showCrew(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	site, out, next, err := e.activeSite(ctx, req.Actor)
	if site == nil {
		return out, next, err
	}
	members, err := e.svc.Sites.Members(ctx, site)
	if err != nil {
		return nil, req.Actor.State, err
	}
	lines := make([]string, 0, len(members))
	for _, m := range members {
		line := m.DisplayName() + " · " + roleLabel(ctx, m.Role)
		if m.ID == site.OwnerID {
			line += " · " + i18n.T(ctx, "crew.owner")
		}
		if m.Specialty != "" {
			line += " · " + m.Specialty
		}
		lines = append(lines, line)
	}
	body := i18n.T(ctx, "crew.header", map[string]any{"Site": site.Name, "Count": len(members)}) + "\n\n" + numbered(lines)
	return message.Text{Body: body + "\n\n" + i18n.T(ctx, "common.back_hint")}, model.StateViewingCrew, nil
}

func (e *Engine) showSites(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	sites, err := e.svc.Sites.List(ctx, actor)
	if err != nil {
		return nil, actor.State, err
	}
	if len(sites) == 0 {
		return e.home(ctx, actor, i18n.T(ctx, "site.none_joined"))
	}
	nav := actor.Scratch.Navigation()
	nav.SiteIDs = nav.SiteIDs[:0]
	opts := make([]message.Option, 0, len(sites))
	active, _ := actor.ActiveSite()
	for i, s := range sites {
		nav.SiteIDs = append(nav.SiteIDs, s.ID)
		label := s.Name + " (" + s.AccessCode + ")"
		if s.ID == active {
			label += " ✓"
		}
		opts = append(opts, message.Option{ID: strconv.Itoa(i + 1), Label: label})
	}
	return message.Choice{
		Title:   i18n.T(ctx, "site.list_title"),
		Options: opts,
		Footer:  i18n.T(ctx, "common.back_hint"),
	}, model.StateSelectingSite, nil
}

func (e *Engine) selectSite(ctx context.Context, req *Request) (message.Outbound, model.State, error) {
	actor := req.Actor
	ids := actor.Scratch.Navigation().SiteIDs
	i, ok := parseIndex(req.Command, len(ids))
	if !ok {
		out, next, err := e.showSites(ctx, req)
		if err != nil || next != model.StateSelectingSite {
			return out, next, err
		}
		return withNotice(out, i18n.T(ctx, "common.pick_number")), next, nil
	}
	site, err := e.svc.Sites.Get(ctx, ids[i])
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		return nil, actor.State, err
	}
	actor.Scratch.ClearNav()
	if site == nil || !actor.BelongsTo(site.ID) {
		return e.home(ctx, actor, i18n.T(ctx, "site.gone"))
	}
	actor.SetActiveSite(site.ID)
	return e.menuView(ctx, actor, i18n.T(ctx, "site.switched", map[string]any{"Name": site.Name})), model.StateInSite, nil
}
