package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return DeriveKey([]byte("server-secret"), []byte("deployment-salt"))
}

func TestDeriveKey_DeterministicAnd32Bytes(t *testing.T) {
	k1 := DeriveKey([]byte("secret"), []byte("salt"))
	k2 := DeriveKey([]byte("secret"), []byte("salt"))
	k3 := DeriveKey([]byte("other"), []byte("salt"))

	assert.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestEncryptDecryptString_RoundTrip(t *testing.T) {
	key := testKey()

	enc, err := EncryptString("sn-password", key)
	require.NoError(t, err)
	assert.NotEqual(t, "sn-password", enc)

	dec, err := DecryptString(enc, key)
	require.NoError(t, err)
	assert.Equal(t, "sn-password", dec)
}

func TestEncryptString_FreshNoncePerCall(t *testing.T) {
	key := testKey()

	e1, err := EncryptString("same", key)
	require.NoError(t, err)
	e2, err := EncryptString("same", key)
	require.NoError(t, err)

	assert.NotEqual(t, e1, e2)
}

func TestDecryptString_WrongKey(t *testing.T) {
	enc, err := EncryptString("secret", testKey())
	require.NoError(t, err)

	_, err = DecryptString(enc, DeriveKey([]byte("wrong"), []byte("salt")))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestDecryptString_Malformed(t *testing.T) {
	key := testKey()

	_, err := DecryptString("not-base64!!", key)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = DecryptString("c2hvcnQ=", key) // decodes to fewer bytes than a nonce
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
