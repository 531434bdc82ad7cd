package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/i18n"
	"github.com/Gustavoab019/startia/internal/message"
	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/service"
)

// Menu option ids. The same ids are accepted as typed numbers.
const (
	optCreateSite     = "1"
	optJoinSite       = "2"
	optMyItems        = "3"
	optPool           = "4"
	optPresence       = "5"
	optCreateItems    = "6"
	optRegisterMember = "7"
	optCrew           = "8"
	optReportProblem  = "9"
	optProblems       = "10"
	optSites          = "11"
)

var menuOptions = []string{
	optCreateSite, optJoinSite, optMyItems, optPool, optPresence, optCreateItems,
	optRegisterMember, optCrew, optReportProblem, optProblems, optSites,
}

// onboard greets a first-contact actor. A known name skips straight to the menu.
func (e *Engine) onboard(ctx context.Context, actor *model.Actor) message.Outbound {
	if actor.Name == "" {
		e.transition(actor, model.StateCollectingName)
		return message.Text{Body: i18n.T(ctx, "onboarding.welcome")}
	}
	e.transition(actor, model.StateMenu)
	e.logger.Info("actor onboarded", zap.String("actor", actor.Phone))
	return e.menuView(ctx, actor, i18n.T(ctx, "onboarding.welcome_named", map[string]any{"Name": actor.Name}))
}

// menuView renders the main menu. notice, when set, is shown above it.
func (e *Engine) menuView(ctx context.Context, actor *model.Actor, notice string) message.Outbound {
	var body []string
	if notice != "" {
		body = append(body, notice)
	}
	if site, err := e.svc.Sites.Active(ctx, actor); err == nil {
		body = append(body, i18n.T(ctx, "menu.active_site", map[string]any{"Name": site.Name, "Code": site.AccessCode}))
	} else {
		body = append(body, i18n.T(ctx, "menu.no_site"))
	}

	opts := make([]message.Option, 0, len(menuOptions))
	for _, id := range menuOptions {
		opts = append(opts, message.Option{ID: id, Label: i18n.T(ctx, "menu.option."+id)})
	}
	return message.Choice{
		Title:   i18n.T(ctx, "menu.title", map[string]any{"Name": actor.DisplayName()}),
		Body:    strings.Join(body, "\n\n"),
		Options: opts,
		Footer:  i18n.T(ctx, "menu.footer"),
	}
}

func stateLabel(ctx context.Context, s model.State) string {
	return i18n.T(ctx, "state."+string(s))
}

// breadcrumb places the state inside its workflow, e.g. "Menu › New site › Address".
func breadcrumb(ctx context.Context, s model.State) string {
	parts := []string{stateLabel(ctx, model.StateMenu)}
	if w := s.Workflow(); w != "" {
		parts = append(parts, i18n.T(ctx, "workflow."+string(w)))
	}
	if s != model.StateMenu {
		parts = append(parts, stateLabel(ctx, s))
	}
	return strings.Join(parts, " › ")
}

func helpTopic(s model.State) string {
	switch s.Workflow() {
	case model.WorkflowSite:
		return "help.site"
	case model.WorkflowWorkItem:
		return "help.work_item"
	case model.WorkflowMember:
		return "help.member"
	case model.WorkflowProblem:
		return "help.problem"
	}
	switch s {
	case model.StateCollectingName:
		return "help.name"
	case model.StateJoiningSite, model.StateSelectingSite:
		return "help.join"
	case model.StateRegisteringPresence:
		return "help.presence"
	case model.StateViewingMyItems, model.StateBrowsingPool, model.StateManagingItem:
		return "help.items"
	case model.StateViewingProblems, model.StateViewingProblem:
		return "help.problems"
	}
	return "help.menu"
}

// help explains the current state. It reads nothing and changes nothing.
func (e *Engine) help(ctx context.Context, actor *model.Actor) string {
	lines := []string{
		i18n.T(ctx, "help.header", map[string]any{"Path": breadcrumb(ctx, actor.State)}),
		i18n.T(ctx, helpTopic(actor.State)),
	}
	if actor.State.Cancelable() {
		lines = append(lines, i18n.T(ctx, "help.cancel"))
	}
	lines = append(lines, i18n.T(ctx, "help.global"))
	return strings.Join(lines, "\n\n")
}

// status summarizes where the actor is and how the active site is doing.
func (e *Engine) status(ctx context.Context, actor *model.Actor) string {
	sum, err := e.svc.Summary.Build(ctx, actor)
	if err != nil {
		e.logger.Error("build status summary", zap.String("actor", actor.Phone), zap.Error(err))
		return i18n.T(ctx, "error.generic")
	}

	lines := []string{
		i18n.T(ctx, "status.header"),
		i18n.T(ctx, "status.actor", map[string]any{"Name": actor.DisplayName(), "Role": roleLabel(ctx, actor.Role)}),
		i18n.T(ctx, "status.location", map[string]any{"Path": breadcrumb(ctx, actor.State)}),
		i18n.T(ctx, "status.items", map[string]any{"Held": sum.Held, "Completed": sum.Completed}),
	}
	if site := sum.Site; site != nil {
		lines = append(lines,
			i18n.T(ctx, "status.site", map[string]any{"Name": site.Name, "Code": site.AccessCode}),
			i18n.T(ctx, "status.site_numbers", map[string]any{
				"Pool":     sum.Pool,
				"Open":     sum.OpenItems,
				"Active":   sum.ActiveToday,
				"Problems": sum.OpenProblems,
			}),
			e.presenceLine(ctx, sum.Presence),
		)
	} else {
		lines = append(lines, i18n.T(ctx, "menu.no_site"))
	}
	if d := actor.Scratch.Draft; d != nil {
		lines = append(lines, i18n.T(ctx, "status.draft", map[string]any{"Workflow": i18n.T(ctx, "workflow."+string(d.Workflow))}))
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) presenceLine(ctx context.Context, p *service.Presence) string {
	switch {
	case p == nil || p.Record == nil:
		return i18n.T(ctx, "presence.absent")
	case p.Working():
		return i18n.T(ctx, "presence.working", map[string]any{
			"Since": e.clock(p.Record.CheckIn),
			"Hours": hours(p.Hours),
		})
	}
	return i18n.T(ctx, "presence.finished", map[string]any{"Hours": hours(p.Hours)})
}

func roleLabel(ctx context.Context, r model.Role) string {
	if r == "" {
		r = model.RoleWorker
	}
	return i18n.T(ctx, "role."+string(r))
}

func hours(h float64) string {
	return strconv.FormatFloat(h, 'f', 2, 64)
}

// withNotice puts notice above the body of out.
func withNotice(out message.Outbound, notice string) message.Outbound {
	if notice == "" {
		return out
	}
	switch m := out.(type) {
	case message.Text:
		m.Body = notice + "\n\n" + m.Body
		return m
	case message.Choice:
		if m.Body == "" {
			m.Body = notice
		} else {
			m.Body = notice + "\n\n" + m.Body
		}
		return m
	}
	return message.Text{Body: notice}
}

// numbered formats list lines as "1. line".
func numbered(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, l)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseIndex reads a 1-based list position.
func parseIndex(cmd string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(cmd))
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}
