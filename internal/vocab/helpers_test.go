package vocab_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"vocab-go/internal/model"
	"vocab-go/internal/storage"
	"vocab-go/internal/testutil"
	"vocab-go/internal/vocab"
)

const alice = "alice@example.com"

type fixture struct {
	ctx     context.Context
	mem     *storage.MemoryStorage
	store   *testutil.CountingStorage
	clock   *testutil.StubClock
	ids     *testutil.StubIDGenerator
	repo    *vocab.UserRepository
	snaps   *vocab.SnapshotManager
	sched   *vocab.MaintenanceScheduler
	courses *vocab.CourseService
}

func newFixture(t *testing.T, opts vocab.SnapshotOptions) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		mem:   storage.NewMemoryStorage(),
		clock: testutil.FixedClock(),
		ids:   testutil.NewStubIDGenerator(),
	}
	f.store = testutil.NewCountingStorage(f.mem)
	logger := vocab.NewNopLogger()

	f.repo = vocab.NewUserRepository(f.store, logger)
	snaps, err := vocab.NewSnapshotManager(f.repo, f.clock, logger, opts)
	require.NoError(t, err)
	f.snaps = snaps
	f.sched = vocab.NewMaintenanceScheduler(f.repo, f.snaps, f.clock, logger, nil, 4)
	f.courses = vocab.NewCourseService(f.repo, f.sched, f.clock, f.ids, logger, 4)
	return f
}

// seedCourse stores a course and its items directly through the repository.
func (f *fixture) seedCourse(t *testing.T, user string, c model.Course, items []model.VocabItem) {
	t.Helper()
	index, err := f.repo.LoadCourseIndex(f.ctx, user)
	require.NoError(t, err)
	require.NoError(t, f.repo.SaveVocab(f.ctx, user, c.Filename, items))
	require.NoError(t, f.repo.SaveCourseIndex(f.ctx, user, append(index, c)))
}

// item builds a VocabItem whose states are the given marks followed by none.
func item(id string, marks ...model.State) model.VocabItem {
	states := model.NewStates()
	copy(states[:], marks)
	return model.VocabItem{
		ID:          id,
		Word:        "word-" + id,
		Answer:      "answer-" + id,
		States:      states,
		LastUpdated: model.NewTimestamp(testutil.FixedClock().Now()),
	}
}

// ticks returns n tick marks.
func ticks(n int) []model.State {
	out := make([]model.State, n)
	for i := range out {
		out[i] = model.StateTick
	}
	return out
}

func filledCounts(items []model.VocabItem) []int {
	out := make([]int, len(items))
	for i := range items {
		out[i] = items[i].States.Filled()
	}
	return out
}
