package vocab_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"vocab-go/internal/vocab"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", vocab.NotFound("load vocab", "vocab file %q not found", "x.json"))

	assert.ErrorIs(t, err, vocab.ErrNotFound)
	assert.NotErrorIs(t, err, vocab.ErrInvalidInput)
	assert.Equal(t, vocab.KindNotFound, vocab.KindOf(err))
	assert.Equal(t, `load vocab: vocab file "x.json" not found`, vocab.NotFound("load vocab", "vocab file %q not found", "x.json").Error())
}

func TestStorageFailure(t *testing.T) {
	assert.NoError(t, vocab.StorageFailure("op", nil))

	cause := errors.New("disk on fire")
	err := vocab.StorageFailure("save vocab", cause)
	assert.ErrorIs(t, err, vocab.ErrStorageFailure)
	assert.ErrorIs(t, err, cause)

	typed := vocab.NotFound("read", "missing")
	assert.Same(t, typed, vocab.StorageFailure("save vocab", typed))
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "not found", err: vocab.NotFound("op", "course %q not found", "a.json"), want: `course "a.json" not found`},
		{name: "invalid input", err: vocab.InvalidInput("op", "bad slot"), want: "bad slot"},
		{name: "conflict", err: vocab.Conflict("op", "duplicate"), want: "duplicate"},
		{name: "kind without message", err: &vocab.Error{Kind: vocab.KindConflict, Op: "op"}, want: "conflict"},
		{name: "storage failure hides cause", err: vocab.StorageFailure("op", errors.New("/srv/data/users: permission denied")), want: "storage failure"},
		{name: "untyped", err: errors.New("boom"), want: "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vocab.PublicMessage(tt.err))
		})
	}
}
