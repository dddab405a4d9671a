package vocab

import (
	"context"
	"errors"
	"time"

	"vocab-go/internal/model"
)

const (
	millisPerWeek = int64(7 * 24 * time.Hour / time.Millisecond)

	// AutoSnapshotNote is the note of snapshots taken by CheckAutoSnapshot.
	AutoSnapshotNote = "Automatic weekly snapshot"

	// DefaultPageSize applies to courses whose stored page size is 0.
	DefaultPageSize = 20
)

// DecayOutcome reports what CheckDecay did.
type DecayOutcome struct {
	Run             bool `json:"run"`
	CoursesModified int  `json:"coursesModified"`
}

// AutoSnapshotOutcome reports what CheckAutoSnapshot did.
type AutoSnapshotOutcome struct {
	Created  bool                `json:"created"`
	Snapshot *model.SnapshotInfo `json:"snapshot,omitempty"`
}

// MaintenanceReport is the combined result of RunDue. Errors are logged, not
// returned; a failed check shows up as its zero outcome.
type MaintenanceReport struct {
	Decay        DecayOutcome        `json:"decay"`
	AutoSnapshot AutoSnapshotOutcome `json:"autoSnapshot"`
}

// MaintenanceScheduler gates per-user maintenance: decay at most once per
// calendar day, an automatic snapshot at most once per epoch week. Nothing
// runs on a timer; callers trigger the checks.
type MaintenanceScheduler struct {
	repo      *UserRepository
	snapshots *SnapshotManager
	clock     Clock
	logger    Logger
	metrics   Metrics

	defaultPageSize int
}

// NewMaintenanceScheduler creates a scheduler. A defaultPageSize below 1
// falls back to DefaultPageSize.
func NewMaintenanceScheduler(repo *UserRepository, snapshots *SnapshotManager, clock Clock, logger Logger, metrics Metrics, defaultPageSize int) *MaintenanceScheduler {
	if defaultPageSize < 1 {
		defaultPageSize = DefaultPageSize
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &MaintenanceScheduler{
		repo:            repo,
		snapshots:       snapshots,
		clock:           clock,
		logger:          logger,
		metrics:         metrics,
		defaultPageSize: defaultPageSize,
	}
}

// CheckDecay runs decay over every course unless it already ran for today.
// today must be YYYY-MM-DD. lastDecay is only advanced after every changed
// file was saved, so a failed run is retried by the next check.
func (s *MaintenanceScheduler) CheckDecay(ctx context.Context, userID, today string) (DecayOutcome, error) {
	if _, err := time.Parse(time.DateOnly, today); err != nil {
		return DecayOutcome{}, InvalidInput("check decay", "invalid date %q, want YYYY-MM-DD", today)
	}
	ns, err := s.repo.ensureUser(ctx, userID)
	if err != nil {
		return DecayOutcome{}, err
	}

	state, err := s.repo.LoadMaintenanceState(ctx, userID)
	if err != nil {
		return DecayOutcome{}, err
	}
	if state.LastDecay == today {
		s.metrics.DecayChecked(false, 0)
		return DecayOutcome{}, nil
	}

	courses, err := s.repo.readCourseIndex(ctx, ns)
	if err != nil {
		return DecayOutcome{}, err
	}

	modified := 0
	for _, c := range courses {
		changed, err := s.decayCourse(ctx, ns, c)
		if err != nil {
			return DecayOutcome{}, err
		}
		if changed {
			modified++
		}
	}

	// Reload so a concurrent auto-snapshot check is not clobbered.
	state, err = s.repo.LoadMaintenanceState(ctx, userID)
	if err != nil {
		return DecayOutcome{}, err
	}
	state.LastDecay = today
	if err := s.repo.SaveMaintenanceState(ctx, userID, state); err != nil {
		return DecayOutcome{}, err
	}

	s.logger.Info("decay completed", "namespace", ns, "date", today, "courses_modified", modified)
	s.metrics.DecayChecked(true, modified)
	return DecayOutcome{Run: true, CoursesModified: modified}, nil
}

func (s *MaintenanceScheduler) decayCourse(ctx context.Context, ns string, c model.Course) (bool, error) {
	if err := ValidateFilename(c.Filename); err != nil {
		s.logger.Warn("skipping course with invalid filename", "namespace", ns, "filename", c.Filename)
		return false, nil
	}

	file, err := s.repo.readVocabFile(ctx, ns, c.Filename)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		return false, nil
	case errors.Is(err, ErrInvalidInput):
		s.logger.Warn("skipping malformed vocab file", "namespace", ns, "filename", c.Filename, "error", err)
		return false, nil
	default:
		return false, err
	}

	pageSize := c.PageSize
	if pageSize == 0 {
		pageSize = s.defaultPageSize
	}
	result := ApplyDecay(file.Content, pageSize)
	if !result.Modified {
		return false, nil
	}

	file.Content = result.Items
	if err := s.repo.writeVocabFile(ctx, ns, c.Filename, file); err != nil {
		return false, err
	}
	return true, nil
}

// CheckAutoSnapshot takes a snapshot unless one was already taken during the
// current epoch week.
func (s *MaintenanceScheduler) CheckAutoSnapshot(ctx context.Context, userID string) (AutoSnapshotOutcome, error) {
	outcome, err := s.checkAutoSnapshot(ctx, userID)
	s.metrics.AutoSnapshotChecked(outcome.Created, err)
	return outcome, err
}

func (s *MaintenanceScheduler) checkAutoSnapshot(ctx context.Context, userID string) (AutoSnapshotOutcome, error) {
	week := s.clock.Now().UnixMilli() / millisPerWeek

	state, err := s.repo.LoadMaintenanceState(ctx, userID)
	if err != nil {
		return AutoSnapshotOutcome{}, err
	}
	if state.LastAutoSnapshotWeek == week {
		return AutoSnapshotOutcome{}, nil
	}

	info, err := s.snapshots.Create(ctx, userID, AutoSnapshotNote)
	if err != nil {
		return AutoSnapshotOutcome{}, err
	}

	state, err = s.repo.LoadMaintenanceState(ctx, userID)
	if err != nil {
		return AutoSnapshotOutcome{}, err
	}
	state.LastAutoSnapshotWeek = week
	if err := s.repo.SaveMaintenanceState(ctx, userID, state); err != nil {
		return AutoSnapshotOutcome{}, err
	}
	return AutoSnapshotOutcome{Created: true, Snapshot: &info}, nil
}

// RunDue runs both checks. Failures are logged and never returned so a
// foreground operation that triggers maintenance is not aborted by it.
func (s *MaintenanceScheduler) RunDue(ctx context.Context, userID, today string) MaintenanceReport {
	var report MaintenanceReport

	decay, err := s.CheckDecay(ctx, userID, today)
	if err != nil {
		s.logger.Error("decay check failed", "user", userID, "error", err)
	} else {
		report.Decay = decay
	}

	report.AutoSnapshot = s.autoSnapshotBestEffort(ctx, userID)
	return report
}

func (s *MaintenanceScheduler) autoSnapshotBestEffort(ctx context.Context, userID string) AutoSnapshotOutcome {
	outcome, err := s.CheckAutoSnapshot(ctx, userID)
	if err != nil {
		s.logger.Error("auto-snapshot check failed", "user", userID, "error", err)
		return AutoSnapshotOutcome{}
	}
	return outcome
}

// Today formats the scheduler clock's current UTC date for CheckDecay.
func (s *MaintenanceScheduler) Today() string {
	return s.clock.Now().UTC().Format(time.DateOnly)
}
