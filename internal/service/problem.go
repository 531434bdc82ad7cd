package service

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/model"
	"github.com/Gustavoab019/startia/internal/store"
)

type ProblemService struct {
	problems store.ProblemRepo
	opts     Options
	logger   *zap.Logger
}

func NewProblemService(gw *store.Gateway, opts Options, logger *zap.Logger) *ProblemService {
	return &ProblemService{problems: gw.Problems, opts: opts.withDefaults(), logger: logger}
}

func ValidateProblemDescription(text string) error {
	if len([]rune(strings.TrimSpace(text))) < 5 {
		return invalid("description", "validation.problem_short")
	}
	return nil
}

// Report files an open problem for the site, linked to the draft's work item if any.
func (s *ProblemService) Report(ctx context.Context, reporterID, siteID bson.ObjectID, d model.ProblemDraft, photoURL string) (*model.ProblemReport, error) {
	if err := ValidateProblemDescription(d.Description); err != nil {
		return nil, err
	}
	p := &model.ProblemReport{
		SiteID:      siteID,
		WorkItemID:  d.WorkItemID,
		ReporterID:  reporterID,
		Description: strings.TrimSpace(d.Description),
		PhotoURL:    photoURL,
		Status:      model.ProblemOpen,
	}
	if err := s.problems.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create problem: %w", err)
	}
	s.logger.Info("problem reported",
		zap.String("problem_id", p.ID.Hex()),
		zap.String("site_id", siteID.Hex()),
		zap.Bool("photo", photoURL != ""))
	return p, nil
}

// ListOpen returns problems that are not resolved, newest first.
func (s *ProblemService) ListOpen(ctx context.Context, siteID bson.ObjectID) ([]*model.ProblemReport, error) {
	return s.problems.List(ctx, store.ProblemFilter{
		SiteID:   &siteID,
		Statuses: []model.ProblemStatus{model.ProblemOpen, model.ProblemInReview},
	})
}

func (s *ProblemService) Get(ctx context.Context, id bson.ObjectID) (*model.ProblemReport, error) {
	p, err := s.problems.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// SetStatus triages a report; only site managers may do it.
func (s *ProblemService) SetStatus(ctx context.Context, actor *model.Actor, site *model.Site, id bson.ObjectID, status model.ProblemStatus) (*model.ProblemReport, error) {
	if !CanManage(actor, site) {
		return nil, ErrForbidden
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SiteID != site.ID {
		return nil, ErrNotFound
	}
	updated, err := s.problems.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	s.logger.Info("problem status changed", zap.String("problem_id", id.Hex()), zap.String("status", string(status)))
	return updated, nil
}
