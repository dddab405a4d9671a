package vocab_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-go/internal/model"
	"vocab-go/internal/vocab"
)

func TestCourseService_CreateCourse(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})

	first, err := f.courses.CreateCourse(f.ctx, alice, "  Spanish Verbs ", 0)
	require.NoError(t, err)
	assert.Equal(t, model.Course{Filename: "spanish-verbs-id1.json", Name: "Spanish Verbs", PageSize: 4, Order: 0}, first)

	second, err := f.courses.CreateCourse(f.ctx, alice, "German", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Order)
	assert.Equal(t, 10, second.PageSize)

	items, err := f.courses.GetVocab(f.ctx, alice, first.Filename)
	require.NoError(t, err)
	assert.Empty(t, items)

	courses, err := f.repo.LoadCourseIndex(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []model.Course{first, second}, courses)
}

func TestCourseService_CreateCourseRejects(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	_, err := f.courses.CreateCourse(f.ctx, alice, "Spanish", 0)
	require.NoError(t, err)

	tests := []struct {
		name     string
		course   string
		pageSize int
		want     error
	}{
		{name: "duplicate name", course: "Spanish", want: vocab.ErrConflict},
		{name: "duplicate name other case", course: "SPANISH", want: vocab.ErrConflict},
		{name: "empty name", course: "   ", want: vocab.ErrInvalidInput},
		{name: "page size too big", course: "French", pageSize: 101, want: vocab.ErrInvalidInput},
		{name: "negative page size", course: "French", pageSize: -1, want: vocab.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.courses.CreateCourse(f.ctx, alice, tt.course, tt.pageSize)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	courses, err := f.repo.LoadCourseIndex(f.ctx, alice)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestCourseService_ListCourses(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	require.NoError(t, f.repo.SaveCourseIndex(f.ctx, alice, []model.Course{
		{Filename: "b.json", Name: "B", Order: 2, PageSize: 7},
		{Filename: "a.json", Name: "A", Order: 1},
	}))

	courses, err := f.courses.ListCourses(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "a.json", courses[0].Filename)
	assert.Equal(t, 4, courses[0].PageSize)
	assert.Equal(t, 7, courses[1].PageSize)

	// Listing takes the weekly snapshot.
	infos, err := f.snaps.List(f.ctx, alice)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, vocab.AutoSnapshotNote, infos[0].Note)

	_, err = f.courses.ListCourses(f.ctx, alice)
	require.NoError(t, err)
	infos, err = f.snaps.List(f.ctx, alice)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestCourseService_ListCoursesSurvivesSnapshotFailure(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	_, err := f.courses.CreateCourse(f.ctx, alice, "Spanish", 0)
	require.NoError(t, err)
	f.store.FailOn("write", "snapshots/", nil)

	courses, err := f.courses.ListCourses(f.ctx, alice)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestCourseService_RenameCourse(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	spanish, err := f.courses.CreateCourse(f.ctx, alice, "Spanish", 0)
	require.NoError(t, err)
	_, err = f.courses.CreateCourse(f.ctx, alice, "German", 0)
	require.NoError(t, err)

	renamed, err := f.courses.RenameCourse(f.ctx, alice, spanish.Filename, "Español")
	require.NoError(t, err)
	assert.Equal(t, "Español", renamed.Name)
	assert.Equal(t, spanish.Filename, renamed.Filename)

	// Changing only the case of its own name is allowed.
	_, err = f.courses.RenameCourse(f.ctx, alice, spanish.Filename, "ESPAÑOL")
	require.NoError(t, err)

	_, err = f.courses.RenameCourse(f.ctx, alice, spanish.Filename, "german")
	assert.ErrorIs(t, err, vocab.ErrConflict)
	_, err = f.courses.RenameCourse(f.ctx, alice, "missing.json", "X")
	assert.ErrorIs(t, err, vocab.ErrNotFound)
	_, err = f.courses.RenameCourse(f.ctx, alice, "../x.json", "X")
	assert.ErrorIs(t, err, vocab.ErrInvalidInput)
}

func TestCourseService_SetPageSize(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	c, err := f.courses.CreateCourse(f.ctx, alice, "Spanish", 0)
	require.NoError(t, err)

	updated, err := f.courses.SetPageSize(f.ctx, alice, c.Filename, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, updated.PageSize)

	for _, size := range []int{0, -5, 101} {
		_, err := f.courses.SetPageSize(f.ctx, alice, c.Filename, size)
		assert.ErrorIs(t, err, vocab.ErrInvalidInput)
	}
	_, err = f.courses.SetPageSize(f.ctx, alice, "missing.json", 5)
	assert.ErrorIs(t, err, vocab.ErrNotFound)
}

func TestCourseService_ReorderCourses(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	a, err := f.courses.CreateCourse(f.ctx, alice, "A", 0)
	require.NoError(t, err)
	b, err := f.courses.CreateCourse(f.ctx, alice, "B", 0)
	require.NoError(t, err)
	c, err := f.courses.CreateCourse(f.ctx, alice, "C", 0)
	require.NoError(t, err)

	courses, err := f.courses.ReorderCourses(f.ctx, alice, []string{c.Filename, a.Filename, b.Filename})
	require.NoError(t, err)
	assert.Equal(t, []string{c.Filename, a.Filename, b.Filename}, []string{courses[0].Filename, courses[1].Filename, courses[2].Filename})
	assert.Equal(t, []int{0, 1, 2}, []int{courses[0].Order, courses[1].Order, courses[2].Order})

	bad := [][]string{
		{a.Filename, b.Filename},
		{a.Filename, a.Filename, b.Filename},
		{a.Filename, b.Filename, "other.json"},
		{a.Filename, b.Filename, "../c.json"},
	}
	for _, order := range bad {
		_, err := f.courses.ReorderCourses(f.ctx, alice, order)
		assert.ErrorIs(t, err, vocab.ErrInvalidInput, order)
	}
}

func TestCourseService_DeleteCourse(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	c, err := f.courses.CreateCourse(f.ctx, alice, "Spanish", 0)
	require.NoError(t, err)

	require.NoError(t, f.courses.DeleteCourse(f.ctx, alice, c.Filename))

	courses, err := f.repo.LoadCourseIndex(f.ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, courses)
	exists, err := f.repo.VocabExists(f.ctx, alice, c.Filename)
	require.NoError(t, err)
	assert.False(t, exists)

	err = f.courses.DeleteCourse(f.ctx, alice, c.Filename)
	assert.ErrorIs(t, err, vocab.ErrNotFound)
}

func TestCourseService_UpdateItemState(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	f.seedCourse(t, alice, spanish, []model.VocabItem{item("s1"), item("s2")})
	f.clock.Advance(time.Hour)

	updated, err := f.courses.UpdateItemState(f.ctx, alice, "spanish.json", "s2", 3, model.StateCross)
	require.NoError(t, err)
	assert.Equal(t, model.StateCross, updated.States[3])
	assert.True(t, f.clock.Now().Equal(updated.LastUpdated.Time))

	items, err := f.courses.GetVocab(f.ctx, alice, "spanish.json")
	require.NoError(t, err)
	assert.Equal(t, model.StateCross, items[1].States[3])
	assert.Equal(t, model.NewStates(), items[0].States)

	tests := []struct {
		name     string
		filename string
		itemID   string
		slot     int
		state    model.State
		want     error
	}{
		{name: "slot too low", filename: "spanish.json", itemID: "s1", slot: -1, state: model.StateTick, want: vocab.ErrInvalidInput},
		{name: "slot too high", filename: "spanish.json", itemID: "s1", slot: 8, state: model.StateTick, want: vocab.ErrInvalidInput},
		{name: "unknown state", filename: "spanish.json", itemID: "s1", slot: 0, state: "maybe", want: vocab.ErrInvalidInput},
		{name: "unknown item", filename: "spanish.json", itemID: "nope", slot: 0, state: model.StateTick, want: vocab.ErrNotFound},
		{name: "unknown course", filename: "french.json", itemID: "s1", slot: 0, state: model.StateTick, want: vocab.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.courses.UpdateItemState(f.ctx, alice, tt.filename, tt.itemID, tt.slot, tt.state)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCourseService_ImportItems(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	f.seedCourse(t, alice, spanish, []model.VocabItem{item("s1")})

	n, err := f.courses.ImportItems(f.ctx, alice, "spanish.json", []model.VocabItem{
		{Word: "  gato ", Answer: " cat "},
		{ID: "custom", Word: "perro", Answer: "dog", States: model.States{model.StateTick}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := f.courses.GetVocab(f.ctx, alice, "spanish.json")
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "id-1", items[1].ID)
	assert.Equal(t, "gato", items[1].Word)
	assert.Equal(t, "cat", items[1].Answer)
	assert.Equal(t, model.NewStates(), items[1].States)
	assert.False(t, items[1].LastUpdated.IsZero())
	assert.Equal(t, "custom", items[2].ID)
	assert.Equal(t, model.StateTick, items[2].States[0])
	assert.Equal(t, model.StateNone, items[2].States[1])

	t.Run("rejects whole batch", func(t *testing.T) {
		_, err := f.courses.ImportItems(f.ctx, alice, "spanish.json", []model.VocabItem{
			{Word: "ok"},
			{ID: "s1", Word: "duplicate id"},
		})
		assert.ErrorIs(t, err, vocab.ErrInvalidInput)

		items, err := f.courses.GetVocab(f.ctx, alice, "spanish.json")
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("empty batch", func(t *testing.T) {
		n, err := f.courses.ImportItems(f.ctx, alice, "spanish.json", nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := f.courses.ImportItems(f.ctx, alice, "french.json", []model.VocabItem{{Word: "x"}})
		assert.ErrorIs(t, err, vocab.ErrNotFound)
	})
}

type stubGenerator struct {
	items []model.VocabItem
	err   error
	got   vocab.GenerateRequest
}

func (g *stubGenerator) Generate(_ context.Context, req vocab.GenerateRequest) ([]model.VocabItem, error) {
	g.got = req
	return g.items, g.err
}

func TestCourseService_GenerateItems(t *testing.T) {
	f := newFixture(t, vocab.SnapshotOptions{})
	f.seedCourse(t, alice, spanish, nil)

	gen := &stubGenerator{items: []model.VocabItem{{Word: "sol", Answer: "sun"}, {Word: "luna", Answer: "moon"}}}
	req := vocab.GenerateRequest{Topic: "sky", Language: "es", Count: 2}

	n, err := f.courses.GenerateItems(f.ctx, alice, "spanish.json", gen, req)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, req, gen.got)

	gen.err = errors.New("quota exceeded")
	_, err = f.courses.GenerateItems(f.ctx, alice, "spanish.json", gen, req)
	require.Error(t, err)
	assert.Equal(t, vocab.KindUnknown, vocab.KindOf(err))
}
