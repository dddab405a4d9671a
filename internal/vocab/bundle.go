package vocab

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic opens every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// errSealed is returned when a bundle is encrypted and no decryption context
// has been unlocked for this session.
var errSealed = errors.New("snapshot bundle is encrypted")

// bundleCodec turns snapshot JSON into stored bytes and back.
// Sealing compresses first, then encrypts.
type bundleCodec struct {
	compress  bool
	encryptor Encryptor // nil: stored unencrypted

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newBundleCodec(compress bool, encryptor Encryptor) (*bundleCodec, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &bundleCodec{
		compress:  compress,
		encryptor: encryptor,
		encoder:   encoder,
		decoder:   decoder,
	}, nil
}

func (c *bundleCodec) seal(plain []byte) ([]byte, error) {
	data := plain
	if c.compress {
		data = c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	}
	if c.encryptor == nil {
		return data, nil
	}

	var buf bytes.Buffer
	if err := c.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
		return nil, fmt.Errorf("encrypting snapshot bundle: %w", err)
	}
	return buf.Bytes(), nil
}

// open reverses seal. The layering is detected from the data itself, so
// bundles written under a different configuration stay readable: JSON starts
// with '{', zstd with its frame magic, anything else is ciphertext.
func (c *bundleCodec) open(data []byte, dec DecryptionContext) ([]byte, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	switch {
	case len(trimmed) > 0 && trimmed[0] == '{':
		return data, nil
	case bytes.HasPrefix(data, zstdMagic):
		plain, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing snapshot bundle: %w", err)
		}
		return plain, nil
	}

	if dec == nil {
		return nil, errSealed
	}
	var buf bytes.Buffer
	if err := dec.Decrypt(bytes.NewReader(data), &buf); err != nil {
		return nil, fmt.Errorf("decrypting snapshot bundle: %w", err)
	}
	inner := buf.Bytes()
	if bytes.HasPrefix(inner, zstdMagic) {
		plain, err := c.decoder.DecodeAll(inner, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing snapshot bundle: %w", err)
		}
		return plain, nil
	}
	return inner, nil
}
