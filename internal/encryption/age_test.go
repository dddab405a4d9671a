package encryption

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-go/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	dir := t.TempDir()
	return NewAgeEncryptor(config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "keys", "vocab.pub"),
		PrivateKeyPath: filepath.Join(dir, "keys", "vocab.key"),
	})
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	assert.False(t, e.IsConfigured())

	require.NoError(t, e.Setup("test-passphrase"))
	assert.True(t, e.IsConfigured())

	t.Run("refuses to replace existing keys", func(t *testing.T) {
		assert.ErrorIs(t, e.Setup("other"), ErrKeysExist)
	})
}

func TestAgeEncryptor_SetupRejectsEmptyPassphrase(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	assert.Error(t, e.Setup(""))
	assert.False(t, e.IsConfigured())
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "snapshot json", input: []byte(`{"id":"2024-01-15-1705314600000","courses":[]}`)},
		{name: "empty", input: []byte{}},
		{name: "large", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestAgeEncryptor(t)
			require.NoError(t, e.Setup("test-passphrase"))

			var sealed bytes.Buffer
			require.NoError(t, e.Encrypt(bytes.NewReader(tt.input), &sealed))
			assert.True(t, bytes.HasPrefix(sealed.Bytes(), []byte("age-encryption.org/v1")))

			dec, err := e.Unlock("test-passphrase")
			require.NoError(t, err)

			var plain bytes.Buffer
			require.NoError(t, dec.Decrypt(bytes.NewReader(sealed.Bytes()), &plain))
			assert.Equal(t, len(tt.input), plain.Len())
			assert.True(t, bytes.Equal(tt.input, plain.Bytes()))
		})
	}
}

func TestAgeEncryptor_EncryptWithFreshInstance(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := config.EncryptionConfig{
		PublicKeyPath:  filepath.Join(dir, "vocab.pub"),
		PrivateKeyPath: filepath.Join(dir, "vocab.key"),
	}
	require.NoError(t, NewAgeEncryptor(cfg).Setup("pw"))

	// A second process only has the key files.
	e := NewAgeEncryptor(cfg)
	var sealed bytes.Buffer
	require.NoError(t, e.Encrypt(bytes.NewReader([]byte("data")), &sealed))

	dec, err := e.Unlock("pw")
	require.NoError(t, err)
	var plain bytes.Buffer
	require.NoError(t, dec.Decrypt(&sealed, &plain))
	assert.Equal(t, "data", plain.String())
}

func TestAgeEncryptor_UnlockWrongPassphrase(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	require.NoError(t, e.Setup("correct-passphrase"))

	_, err := e.Unlock("wrong-passphrase")
	assert.Error(t, err)
}

func TestAgeEncryptor_BeforeSetup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	var buf bytes.Buffer
	assert.Error(t, e.Encrypt(bytes.NewReader([]byte("data")), &buf))

	_, err := e.Unlock("passphrase")
	assert.Error(t, err)
}
