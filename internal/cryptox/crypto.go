// Package cryptox implements the authenticated channel layered over the
// length-prefixed framing once the key exchange has produced a shared secret.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// MinKeyLength is the minimum length of each derived key; shorter halves are
// right-padded with '0'.
const MinKeyLength = 24

// FixedIV is the initialization vector shared by every session. Reusing it
// makes equal plaintext prefixes produce equal ciphertext prefixes; this is
// one of the protocol's intentional weaknesses.
var FixedIV = []byte("RandomInitVector")

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidPadding    = errors.New("invalid padding")
)

// Keys is the key material derived from one shared secret.
type Keys struct {
	MAC []byte
	Enc []byte
}

// DeriveKeys hashes the decimal form of the shared secret with SHA-256,
// base64-encodes the digest and splits the text in two: the first half keys
// the MAC, the second half the cipher.
func DeriveKeys(secret int64) Keys {
	sum := sha256.Sum256([]byte(strconv.FormatInt(secret, 10)))
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	half := len(encoded) / 2

	return Keys{
		MAC: []byte(padKey(encoded[:half])),
		Enc: []byte(padKey(encoded[half:])),
	}
}

func padKey(s string) string {
	if len(s) >= MinKeyLength {
		return s
	}
	return s + strings.Repeat("0", MinKeyLength-len(s))
}

// Encrypt encrypts plaintext with AES-CBC and PKCS#7 padding and returns
// the ciphertext as standard base64.
func Encrypt(key, iv []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	data := pkcs7Pad([]byte(plaintext), block.BlockSize())
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func Decrypt(key, iv []byte, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return "", ErrInvalidCiphertext
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, raw)

	plain, err := pkcs7Unpad(out, block.BlockSize())
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Sign returns the base64 HMAC-SHA-256 of the ciphertext text.
func Sign(key []byte, ciphertext string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(ciphertext))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the tag and compares it in constant time.
func Verify(key []byte, ciphertext, tag string) bool {
	return hmac.Equal([]byte(Sign(key, ciphertext)), []byte(tag))
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 {
		return nil, ErrInvalidPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, ErrInvalidPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, ErrInvalidPadding
		}
	}
	return b[:len(b)-n], nil
}
