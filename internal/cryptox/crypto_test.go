package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeys_SplitsAndPads(t *testing.T) {
	k := DeriveKeys(13)

	assert.Len(t, k.MAC, MinKeyLength)
	assert.Len(t, k.Enc, MinKeyLength)
	// 44 base64 chars split in two 22-char halves, padded with "00"
	assert.True(t, strings.HasSuffix(string(k.MAC), "00"))
	assert.True(t, strings.HasSuffix(string(k.Enc), "00"))
	assert.NotEqual(t, k.MAC, k.Enc)

	again := DeriveKeys(13)
	assert.Equal(t, k, again)

	other := DeriveKeys(14)
	assert.NotEqual(t, k.Enc, other.Enc)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	k := DeriveKeys(7)
	for _, p := range []string{"", "a", "sixteen bytes!!!", "Login OK.", "ünïcødé::with::separators"} {
		ct, err := Encrypt(k.Enc, FixedIV, p)
		require.NoError(t, err)
		assert.NotContains(t, ct, ":")

		got, err := Decrypt(k.Enc, FixedIV, ct)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestEncrypt_FixedIVIsDeterministic(t *testing.T) {
	k := DeriveKeys(7)
	a, err := Encrypt(k.Enc, FixedIV, "balance")
	require.NoError(t, err)
	b, err := Encrypt(k.Enc, FixedIV, "balance")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecrypt_Rejects(t *testing.T) {
	k := DeriveKeys(7)

	_, err := Decrypt(k.Enc, FixedIV, "not base64!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = Decrypt(k.Enc, FixedIV, "AAAA")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestSignVerify(t *testing.T) {
	k := DeriveKeys(3)
	tag := Sign(k.MAC, "cipher")

	assert.True(t, Verify(k.MAC, "cipher", tag))
	assert.False(t, Verify(k.MAC, "cipheR", tag))
	assert.False(t, Verify(DeriveKeys(4).MAC, "cipher", tag))
	assert.False(t, Verify(k.MAC, "cipher", ""))
}

func TestPKCS7(t *testing.T) {
	p := pkcs7Pad([]byte("abc"), 16)
	assert.Len(t, p, 16)
	u, err := pkcs7Unpad(p, 16)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(u))

	full := pkcs7Pad(make([]byte, 16), 16)
	assert.Len(t, full, 32)

	_, err = pkcs7Unpad([]byte{1, 2, 3, 0}, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)
	_, err = pkcs7Unpad([]byte{1, 2, 2, 3}, 16)
	assert.ErrorIs(t, err, ErrInvalidPadding)
}
