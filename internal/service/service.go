package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/store"
)

type Options struct {
	Location      *time.Location
	MaxBatchSpan  int
	UnitsPerFloor int
	CountryCode   string
	BreakFrom     string
	BreakTo       string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.MaxBatchSpan <= 0 {
		o.MaxBatchSpan = 50
	}
	if o.UnitsPerFloor <= 0 {
		o.UnitsPerFloor = 10
	}
	if o.BreakFrom == "" || o.BreakTo == "" {
		o.BreakFrom, o.BreakTo = "12:00", "13:00"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Services bundles the domain services over one store gateway.
type Services struct {
	Sites      *SiteService
	Crew       *CrewService
	Pool       *PoolService
	Attendance *AttendanceService
	Problems   *ProblemService
	Summary    *SummaryService
	Options    Options
}

func New(gw *store.Gateway, opts Options, logger *zap.Logger) *Services {
	opts = opts.withDefaults()
	s := &Services{
		Sites:      NewSiteService(gw, opts, logger),
		Crew:       NewCrewService(gw, opts, logger),
		Pool:       NewPoolService(gw, opts, logger),
		Attendance: NewAttendanceService(gw, opts, logger),
		Problems:   NewProblemService(gw, opts, logger),
		Options:    opts,
	}
	s.Summary = NewSummaryService(gw, s.Sites, s.Attendance)
	return s
}
