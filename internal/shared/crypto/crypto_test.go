package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)

	for _, plaintext := range []string{
		"gsk_abcdef1234567890",
		"",
		"key with spaces and ünïcode",
	} {
		encrypted, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)

		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)

	a, err := c.Encrypt("gsk_same_key")
	require.NoError(t, err)
	b, err := c.Encrypt("gsk_same_key")
	require.NoError(t, err)

	// Random nonce per call: identical plaintexts must not repeat.
	assert.NotEqual(t, a, b)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	c1, err := New("secret-one")
	require.NoError(t, err)
	c2, err := New("secret-two")
	require.NoError(t, err)

	encrypted, err := c1.Encrypt("gsk_abc")
	require.NoError(t, err)

	_, err = c2.Decrypt(encrypted)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptGarbageFails(t *testing.T) {
	c, err := New("test-secret")
	require.NoError(t, err)

	_, err = c.Decrypt("not base64 %%%")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = c.Decrypt("c2hvcnQ=") // valid base64, too short for a nonce
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
