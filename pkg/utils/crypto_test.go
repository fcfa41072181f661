package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cryptoKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	sealed, err := Encrypt([]byte("access-token-value"), cryptoKey)
	require.NoError(t, err)
	assert.NotEqual(t, "access-token-value", sealed)

	plain, err := Decrypt(sealed, cryptoKey)
	require.NoError(t, err)
	assert.Equal(t, "access-token-value", plain)
}

func TestEncryptRandomizesNonce(t *testing.T) {
	first, err := Encrypt([]byte("same input"), cryptoKey)
	require.NoError(t, err)
	second, err := Encrypt([]byte("same input"), cryptoKey)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), cryptoKey)
	require.NoError(t, err)

	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	_, err = Decrypt(sealed, otherKey)
	assert.Error(t, err)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), cryptoKey)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = Decrypt(tampered, cryptoKey)
	assert.Error(t, err)
}

func TestDecryptShortCiphertextFails(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02})
	_, err := Decrypt(short, cryptoKey)
	assert.Error(t, err)
}

func TestEncryptBadKeySizeFails(t *testing.T) {
	_, err := Encrypt([]byte("secret"), []byte("too short"))
	assert.Error(t, err)
}
