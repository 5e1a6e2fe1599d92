package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func stubTerminal(t *testing.T, terminal bool, pw []byte, err error) {
	t.Helper()
	oldTerm, oldRead := isTerminal, readPassword
	isTerminal = func(int) bool { return terminal }
	readPassword = func(int) ([]byte, error) { return pw, err }
	t.Cleanup(func() {
		isTerminal, readPassword = oldTerm, oldRead
	})
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("  alice \n"), "User", &out)
	require.NoError(t, err)
	assert.Equal(t, "alice", got)
	assert.Equal(t, "User: ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	got, err := GetSimpleText(rdr("lastline"), "User", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "User", &bytes.Buffer{})
	require.Error(t, err)
}

func TestGetPassword_Terminal(t *testing.T) {
	stubTerminal(t, true, []byte("secret"), nil)
	var out bytes.Buffer

	pw, err := GetPassword(rdr(""), &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), pw)
	assert.Equal(t, "Password: \n", out.String())
}

func TestGetPassword_TerminalError(t *testing.T) {
	stubTerminal(t, true, nil, errors.New("boom"))
	_, err := GetPassword(rdr(""), &bytes.Buffer{})
	require.Error(t, err)
}

func TestGetPassword_NotTerminal(t *testing.T) {
	stubTerminal(t, false, nil, errors.New("must not be called"))
	pw, err := GetPassword(rdr("pw-a\n"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []byte("pw-a"), pw)
}
