package model

// State is the persisted position of an actor in the conversation.
type State string

const (
	StateNew            State = "new"
	StateCollectingName State = "collecting_name"
	StateMenu           State = "menu"
	StateInSite         State = "in_site"

	StateCreatingSiteName             State = "creating_site_name"
	StateCreatingSiteAddress          State = "creating_site_address"
	StateCreatingSiteBreakChoice      State = "creating_site_break_choice"
	StateCreatingSiteBreakStart       State = "creating_site_break_start"
	StateCreatingSiteBreakEnd         State = "creating_site_break_end"
	StateCreatingSiteConfirmDuplicate State = "creating_site_confirm_duplicate"

	StateJoiningSite   State = "joining_site"
	StateSelectingSite State = "selecting_site"

	StateCreatingItemTitle    State = "creating_item_title"
	StateCreatingItemLocation State = "creating_item_location"
	StateCreatingItemPhase    State = "creating_item_phase"
	StateCreatingItemDeadline State = "creating_item_deadline"
	StateCreatingItemPreview  State = "creating_item_preview"

	StateRegisteringMemberName      State = "registering_member_name"
	StateRegisteringMemberPhone     State = "registering_member_phone"
	StateRegisteringMemberRole      State = "registering_member_role"
	StateRegisteringMemberSpecialty State = "registering_member_specialty"

	StateReportingProblemDescription State = "reporting_problem_description"
	StateReportingProblemPhoto       State = "reporting_problem_photo"

	StateRegisteringPresence State = "registering_presence"

	StateViewingMyItems  State = "viewing_my_items"
	StateBrowsingPool    State = "browsing_pool"
	StateManagingItem    State = "managing_item"
	StateViewingProblems State = "viewing_problems"
	StateViewingProblem  State = "viewing_problem"
	StateViewingCrew     State = "viewing_crew"
)

// Workflow names a wizard that owns a draft while the actor is inside it.
type Workflow string

const (
	WorkflowSite     Workflow = "site"
	WorkflowWorkItem Workflow = "work_item"
	WorkflowMember   Workflow = "member"
	WorkflowProblem  Workflow = "problem"
)

var stateWorkflow = map[State]Workflow{
	StateCreatingSiteName:             WorkflowSite,
	StateCreatingSiteAddress:          WorkflowSite,
	StateCreatingSiteBreakChoice:      WorkflowSite,
	StateCreatingSiteBreakStart:       WorkflowSite,
	StateCreatingSiteBreakEnd:         WorkflowSite,
	StateCreatingSiteConfirmDuplicate: WorkflowSite,

	StateCreatingItemTitle:    WorkflowWorkItem,
	StateCreatingItemLocation: WorkflowWorkItem,
	StateCreatingItemPhase:    WorkflowWorkItem,
	StateCreatingItemDeadline: WorkflowWorkItem,
	StateCreatingItemPreview:  WorkflowWorkItem,

	StateRegisteringMemberName:      WorkflowMember,
	StateRegisteringMemberPhone:     WorkflowMember,
	StateRegisteringMemberRole:      WorkflowMember,
	StateRegisteringMemberSpecialty: WorkflowMember,

	StateReportingProblemDescription: WorkflowProblem,
	StateReportingProblemPhoto:       WorkflowProblem,
}

// Workflow returns the wizard a state belongs to, or "" for menus and browsers.
func (s State) Workflow() Workflow {
	return stateWorkflow[s]
}

// Cancelable reports whether the cancel command applies in this state.
func (s State) Cancelable() bool {
	return s.Workflow() != ""
}

// WorkflowStates lists every wizard state, in declaration order per workflow.
func WorkflowStates(w Workflow) []State {
	var out []State
	for _, s := range wizardOrder {
		if stateWorkflow[s] == w {
			out = append(out, s)
		}
	}
	return out
}

var wizardOrder = []State{
	StateCreatingSiteName, StateCreatingSiteAddress, StateCreatingSiteBreakChoice,
	StateCreatingSiteBreakStart, StateCreatingSiteBreakEnd, StateCreatingSiteConfirmDuplicate,
	StateCreatingItemTitle, StateCreatingItemLocation, StateCreatingItemPhase,
	StateCreatingItemDeadline, StateCreatingItemPreview,
	StateRegisteringMemberName, StateRegisteringMemberPhone, StateRegisteringMemberRole,
	StateRegisteringMemberSpecialty,
	StateReportingProblemDescription, StateReportingProblemPhoto,
}
