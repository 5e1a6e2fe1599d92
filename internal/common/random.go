package common

import (
	"crypto/rand"
	"math/big"
)

const alphaNum = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// RandomAlphaNum returns a random string of n ASCII letters and digits.
// It panics if the system random source fails.
func RandomAlphaNum(n int) string {
	return randomFrom(alphaNum, n)
}

// RandomDigits returns a random string of n decimal digits.
func RandomDigits(n int) string {
	return randomFrom(alphaNum[:10], n)
}

func randomFrom(alphabet string, n int) string {
	if n <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}

// WipeByteArray overwrites b with zeros. Used for passwords read from the
// terminal once they are no longer needed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
