package vocab_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-go/internal/model"
	"vocab-go/internal/vocab"
)

func itemsWithFilled(counts ...int) []model.VocabItem {
	out := make([]model.VocabItem, len(counts))
	for i, n := range counts {
		out[i] = item(fmt.Sprintf("i%d", i), ticks(n)...)
	}
	return out
}

func TestApplyDecay_LevelsPage(t *testing.T) {
	in := itemsWithFilled(4, 4, 0, 0)

	res := vocab.ApplyDecay(in, 4)

	require.True(t, res.Modified)
	assert.Equal(t, []int{2, 2, 2, 2}, filledCounts(res.Items))

	n, tk, b := model.StateNone, model.StateTick, model.StateBoost
	assert.Equal(t, model.States{tk, tk, n, n, n, n, n, n}, res.Items[0].States)
	assert.Equal(t, model.States{tk, tk, n, n, n, n, n, n}, res.Items[1].States)
	assert.Equal(t, model.States{b, b, n, n, n, n, n, n}, res.Items[2].States)
	assert.Equal(t, model.States{b, b, n, n, n, n, n, n}, res.Items[3].States)
}

func TestApplyDecay_BalancedPageIsNoOp(t *testing.T) {
	in := itemsWithFilled(2, 2, 2, 2)

	res := vocab.ApplyDecay(in, 4)

	assert.False(t, res.Modified)
	assert.Equal(t, in, res.Items)
}

func TestApplyDecay_DoesNotMutateInput(t *testing.T) {
	in := itemsWithFilled(8, 0, 3)
	before := make([]model.VocabItem, len(in))
	copy(before, in)

	_ = vocab.ApplyDecay(in, 3)

	assert.Equal(t, before, in)
}

func TestApplyDecay_ClearsNewestSkippingEmptySlots(t *testing.T) {
	n, tk, x := model.StateNone, model.StateTick, model.StateCross
	busy := item("busy", tk, n, x, n, tk, x)
	idle := item("idle")

	res := vocab.ApplyDecay([]model.VocabItem{busy, idle}, 2)

	// avg = floor(4/2) = 2: busy keeps its two oldest marks, idle gets two boosts.
	assert.Equal(t, model.States{tk, n, x, n, n, n, n, n}, res.Items[0].States)
	assert.Equal(t, 2, res.Items[1].States.Filled())
}

func TestApplyDecay_BoostsFillEarliestEmptySlots(t *testing.T) {
	n, tk, b := model.StateNone, model.StateTick, model.StateBoost
	low := item("low", n, tk)
	high := item("high", ticks(5)...)

	res := vocab.ApplyDecay([]model.VocabItem{low, high}, 2)

	// avg = floor(6/2) = 3
	assert.Equal(t, model.States{b, tk, b, n, n, n, n, n}, res.Items[0].States)
	assert.Equal(t, 3, res.Items[1].States.Filled())
}

func TestApplyDecay_PagesAreIndependent(t *testing.T) {
	secondPage := itemsWithFilled(3, 1)
	secondPage[0].ID, secondPage[1].ID = "p2a", "p2b"

	for _, first := range [][]int{{0, 0}, {8, 0}, {5, 7}, {1, 2}} {
		t.Run(fmt.Sprint(first), func(t *testing.T) {
			in := append(itemsWithFilled(first...), secondPage...)
			res := vocab.ApplyDecay(in, 2)

			// The second page is levelled on its own: avg = 2.
			assert.Equal(t, []int{2, 2}, filledCounts(res.Items[2:]))
		})
	}
}

func TestApplyDecay_ShortLastPage(t *testing.T) {
	in := itemsWithFilled(1, 1, 1, 5)

	res := vocab.ApplyDecay(in, 3)

	assert.False(t, res.Modified)
	assert.Equal(t, []int{1, 1, 1, 5}, filledCounts(res.Items))
}

func TestApplyDecay_InvalidPageSize(t *testing.T) {
	in := itemsWithFilled(8, 0)

	for _, size := range []int{0, -1} {
		res := vocab.ApplyDecay(in, size)
		assert.False(t, res.Modified)
		assert.Equal(t, in, res.Items)
	}
}

func TestApplyDecay_Empty(t *testing.T) {
	res := vocab.ApplyDecay(nil, 4)
	assert.False(t, res.Modified)
	assert.Empty(t, res.Items)
}

func TestApplyDecay_Idempotent(t *testing.T) {
	marks := []model.State{model.StateNone, model.StateTick, model.StateCross, model.StateBoost}
	rng := rand.New(rand.NewPCG(7, 11))

	for run := range 200 {
		size := rng.IntN(30)
		in := make([]model.VocabItem, size)
		for i := range in {
			var s model.States
			for j := range s {
				s[j] = marks[rng.IntN(len(marks))]
			}
			in[i] = model.VocabItem{ID: fmt.Sprintf("r%d", i), Word: "w", States: s}
		}
		pageSize := 1 + rng.IntN(10)

		once := vocab.ApplyDecay(in, pageSize)
		twice := vocab.ApplyDecay(once.Items, pageSize)

		require.False(t, twice.Modified, "run %d: second pass modified (pageSize %d)", run, pageSize)
		require.Equal(t, once.Items, twice.Items, "run %d", run)
	}
}
