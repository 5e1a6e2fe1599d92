package protocol

import (
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophbank/internal/cryptox"
	"github.com/dmitrijs2005/gophbank/internal/server/ledger"
)

// State is the position of a session in the protocol.
type State int

const (
	StateConnected State = iota
	StateKeyExchanging
	StateKeyExchanged
	StateHandshakeFailed
	StateAuthenticating
	StateLoggedIn
	StateDeviceAuthenticated
	StateCommandLoop
	StateClosed
)

var stateNames = [...]string{
	StateConnected:           "connected",
	StateKeyExchanging:       "key-exchanging",
	StateKeyExchanged:        "key-exchanged",
	StateHandshakeFailed:     "handshake-failed",
	StateAuthenticating:      "authenticating",
	StateLoggedIn:            "logged-in",
	StateDeviceAuthenticated: "device-authenticated",
	StateCommandLoop:         "command-loop",
	StateClosed:              "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Session is the state of one connection. It is owned by the goroutine
// serving that connection and is never shared.
type Session struct {
	ID      uuid.UUID
	Remote  string
	Channel *cryptox.Channel

	UserID              ledger.AccountID
	KeyExchanged        bool
	DeviceAuthenticated bool
	State               State
}

// NewSession creates a session over ch for a peer at remote.
func NewSession(ch *cryptox.Channel, remote string) *Session {
	return &Session{
		ID:      uuid.New(),
		Remote:  remote,
		Channel: ch,
		UserID:  ledger.NoAccount,
		State:   StateConnected,
	}
}
