package testutil

import (
	"vocab-go/internal/encryption"
	"vocab-go/internal/vocab"
)

// NewTestEncryptor returns the deterministic header-prefix encryptor.
func NewTestEncryptor() vocab.Encryptor {
	return encryption.NewTestEncryptor()
}
