package vocab_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-go/internal/vocab"
)

func TestNamespace(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		want   string
	}{
		{name: "email", userID: "alice@example.com", want: "alice@example.com"},
		{name: "lowercased", userID: "Alice@Example.COM", want: "alice@example.com"},
		{name: "trimmed", userID: "  bob@example.com ", want: "bob@example.com"},
		{name: "allowed punctuation", userID: "a.b_c-d@x", want: "a.b_c-d@x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vocab.Namespace(tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNamespace_ReplacedCharactersGetHashSuffix(t *testing.T) {
	slash, err := vocab.Namespace("a/b")
	require.NoError(t, err)
	space, err := vocab.Namespace("a b")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(slash, "a_b-"))
	assert.True(t, strings.HasPrefix(space, "a_b-"))
	assert.NotEqual(t, slash, space)
	assert.NotContains(t, slash, "/")
}

func TestNamespace_Stable(t *testing.T) {
	first, err := vocab.Namespace("user+tag@example.com")
	require.NoError(t, err)
	second, err := vocab.Namespace("USER+TAG@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNamespace_Rejects(t *testing.T) {
	for _, id := range []string{"", "   ", ".", "..", "a..b", "../etc"} {
		t.Run(id, func(t *testing.T) {
			_, err := vocab.Namespace(id)
			assert.ErrorIs(t, err, vocab.ErrInvalidInput)
		})
	}
}

func TestValidateFilename(t *testing.T) {
	valid := []string{"spanish.json", "Verbs_2-a.json", "x.json"}
	for _, name := range valid {
		assert.NoError(t, vocab.ValidateFilename(name), name)
	}

	invalid := []string{
		"",
		".json",
		"spanish",
		"spanish.txt",
		"../spanish.json",
		"a/b.json",
		`a\b.json`,
		"sp anish.json",
		"courses.json",
		"server_state.json",
		"spanish.json.bak",
	}
	for _, name := range invalid {
		err := vocab.ValidateFilename(name)
		assert.ErrorIs(t, err, vocab.ErrInvalidInput, name)
	}
}

func TestCourseFilename(t *testing.T) {
	tests := []struct {
		name, suffix, want string
	}{
		{"Spanish Verbs", "1a2b3c4d", "spanish-verbs-1a2b3c4d.json"},
		{"  Déjà vu!! ", "id-7", "d-j-vu-id7.json"},
		{"???", "abc", "course-abc.json"},
		{"Long", "0123456789abcdef", "long-01234567.json"},
		{"Plain", "", "plain.json"},
	}
	for _, tt := range tests {
		got := vocab.CourseFilename(tt.name, tt.suffix)
		assert.Equal(t, tt.want, got)
		assert.NoError(t, vocab.ValidateFilename(got))
	}
}
