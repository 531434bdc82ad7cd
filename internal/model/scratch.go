package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Scratch holds the per-actor working data of the conversation. Draft belongs to
// exactly one wizard; Nav caches list selections made in the read-only browsers.
type Scratch struct {
	Draft *Draft      `bson:"draft,omitempty" json:"draft,omitempty"`
	Nav   *Navigation `bson:"nav,omitempty" json:"nav,omitempty"`
}

// Draft is a tagged union: only the variant matching Workflow is set.
type Draft struct {
	Workflow Workflow       `bson:"workflow" json:"workflow"`
	Site     *SiteDraft     `bson:"site,omitempty" json:"site,omitempty"`
	WorkItem *WorkItemDraft `bson:"work_item,omitempty" json:"work_item,omitempty"`
	Member   *MemberDraft   `bson:"member,omitempty" json:"member,omitempty"`
	Problem  *ProblemDraft  `bson:"problem,omitempty" json:"problem,omitempty"`
}

type SiteDraft struct {
	Name       string `bson:"name,omitempty" json:"name,omitempty"`
	Address    string `bson:"address,omitempty" json:"address,omitempty"`
	BreakStart string `bson:"break_start,omitempty" json:"break_start,omitempty"`
	BreakEnd   string `bson:"break_end,omitempty" json:"break_end,omitempty"`
}

type WorkItemDraft struct {
	Title    string     `bson:"title,omitempty" json:"title,omitempty"`
	Location string     `bson:"location,omitempty" json:"location,omitempty"`
	Units    []string   `bson:"units,omitempty" json:"units,omitempty"`
	Phase    string     `bson:"phase,omitempty" json:"phase,omitempty"`
	Deadline *time.Time `bson:"deadline,omitempty" json:"deadline,omitempty"`
}

type MemberDraft struct {
	Name      string `bson:"name,omitempty" json:"name,omitempty"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
	Role      Role   `bson:"role,omitempty" json:"role,omitempty"`
	Specialty string `bson:"specialty,omitempty" json:"specialty,omitempty"`
}

type ProblemDraft struct {
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	// WorkItemID links the report and marks where the conversation returns after commit.
	WorkItemID *bson.ObjectID `bson:"work_item_id,omitempty" json:"work_item_id,omitempty"`
}

type Navigation struct {
	SiteIDs    []bson.ObjectID `bson:"site_ids,omitempty" json:"site_ids,omitempty"`
	ItemIDs    []bson.ObjectID `bson:"item_ids,omitempty" json:"item_ids,omitempty"`
	ItemID     *bson.ObjectID  `bson:"item_id,omitempty" json:"item_id,omitempty"`
	ProblemIDs []bson.ObjectID `bson:"problem_ids,omitempty" json:"problem_ids,omitempty"`
	ProblemID  *bson.ObjectID  `bson:"problem_id,omitempty" json:"problem_id,omitempty"`
}

// NewDraft starts an empty draft for w with its variant allocated.
func NewDraft(w Workflow) *Draft {
	d := &Draft{Workflow: w}
	switch w {
	case WorkflowSite:
		d.Site = &SiteDraft{}
	case WorkflowWorkItem:
		d.WorkItem = &WorkItemDraft{}
	case WorkflowMember:
		d.Member = &MemberDraft{}
	case WorkflowProblem:
		d.Problem = &ProblemDraft{}
	}
	return d
}

// DraftFor returns the actor's draft for w, or nil when another or no wizard owns the scratch.
func (s *Scratch) DraftFor(w Workflow) *Draft {
	if s.Draft == nil || s.Draft.Workflow != w {
		return nil
	}
	return s.Draft
}

func (s *Scratch) ClearDraft() { s.Draft = nil }
func (s *Scratch) ClearNav()   { s.Nav = nil }

func (s *Scratch) Clear() {
	s.Draft = nil
	s.Nav = nil
}

func (s *Scratch) Empty() bool {
	return s.Draft == nil && s.Nav == nil
}

// Navigation returns the nav cache, allocating it on first use.
func (s *Scratch) Navigation() *Navigation {
	if s.Nav == nil {
		s.Nav = &Navigation{}
	}
	return s.Nav
}
