package cryptox

import (
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophbank/internal/frame"
)

// Separator joins the fields of a sealed message and of its plaintext.
const Separator = "::"

// In-band sentinel payloads. Receive returns one of these, with a nil error,
// when a frame arrived intact but cannot be trusted. Callers must compare
// against them (see IsSentinel) before treating a payload as protocol data.
const (
	SentinelMalformed = "ERROR: malformed packet"
	SentinelBadAuth   = "ERROR: bad authentication"
	SentinelReplay    = "ERROR: replayed packet"
	SentinelNoKeys    = "ERROR: no session key"
)

// ErrNoKeys is returned by Send before a key exchange has completed.
var ErrNoKeys = errors.New("no session key established")

// IsSentinel reports whether s is one of the in-band error payloads.
func IsSentinel(s string) bool {
	switch s {
	case SentinelMalformed, SentinelBadAuth, SentinelReplay, SentinelNoKeys:
		return true
	}
	return false
}

// Channel is the per-session secure channel. It owns the derived keys, the
// outbound message counter and the set of inbound counters already seen.
// Nothing here is shared between sessions.
type Channel struct {
	codec *frame.Codec

	mu      sync.Mutex
	keys    *Keys
	counter int32
	seen    map[int32]struct{}

	now func() time.Time
}

// NewChannel creates a channel over codec. The outbound counter starts at a
// random value in [0, MaxInt32).
func NewChannel(codec *frame.Codec) *Channel {
	start, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt32))
	if err != nil {
		panic(err)
	}
	return &Channel{
		codec:   codec,
		counter: int32(start.Int64()),
		seen:    make(map[int32]struct{}),
		now:     time.Now,
	}
}

// Codec returns the underlying framing codec.
func (c *Channel) Codec() *frame.Codec {
	return c.codec
}

// SetKeys installs key material from a completed exchange.
func (c *Channel) SetKeys(k Keys) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = &k
}

// HasKeys reports whether a key exchange has completed on this channel.
func (c *Channel) HasKeys() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys != nil
}

// SendPlain frames payload without protection. Only the key exchange uses it.
func (c *Channel) SendPlain(payload string) error {
	return c.codec.WriteString(payload)
}

// ReceivePlain reads one unprotected frame.
func (c *Channel) ReceivePlain() (string, error) {
	return c.codec.ReadString()
}

// Send seals payload and writes it as one frame:
//
//	base64(AES-CBC(payload::millis::counter)) :: base64(HMAC(ciphertext))
func (c *Channel) Send(payload string) error {
	c.mu.Lock()
	if c.keys == nil {
		c.mu.Unlock()
		return ErrNoKeys
	}
	keys := *c.keys
	counter := c.counter
	if c.counter == math.MaxInt32 {
		c.counter = 0
	} else {
		c.counter++
	}
	c.mu.Unlock()

	data := payload + Separator +
		strconv.FormatInt(c.now().UnixMilli(), 10) + Separator +
		strconv.FormatInt(int64(counter), 10)

	ct, err := Encrypt(keys.Enc, FixedIV, data)
	if err != nil {
		return err
	}
	return c.codec.WriteString(ct + Separator + Sign(keys.MAC, ct))
}

// Receive reads one frame and opens it. Transport failures are returned as
// errors and end the session; integrity failures come back as sentinel
// payloads so the session can carry on.
func (c *Channel) Receive() (string, error) {
	msg, err := c.codec.ReadString()
	if err != nil {
		return "", err
	}
	return c.open(msg), nil
}

func (c *Channel) open(msg string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keys == nil {
		return SentinelNoKeys
	}

	parts := strings.Split(msg, Separator)
	if len(parts) != 2 {
		return SentinelMalformed
	}
	ct, tag := parts[0], parts[1]

	if !Verify(c.keys.MAC, ct, tag) {
		return SentinelBadAuth
	}

	data, err := Decrypt(c.keys.Enc, FixedIV, ct)
	if err != nil {
		return SentinelMalformed
	}

	payload, _, counter, ok := splitData(data)
	if !ok {
		return SentinelMalformed
	}

	if _, dup := c.seen[counter]; dup {
		return SentinelReplay
	}
	if counter == math.MaxInt32 {
		// the sender wraps to zero next
		clear(c.seen)
	}
	c.seen[counter] = struct{}{}

	return payload
}

// splitData splits "payload::millis::counter" from the right so that the
// payload itself may contain the separator.
func splitData(data string) (payload string, millis int64, counter int32, ok bool) {
	i := strings.LastIndex(data, Separator)
	if i < 0 {
		return "", 0, 0, false
	}
	cnt, err := strconv.ParseInt(data[i+len(Separator):], 10, 32)
	if err != nil {
		return "", 0, 0, false
	}
	rest := data[:i]

	j := strings.LastIndex(rest, Separator)
	if j < 0 {
		return "", 0, 0, false
	}
	ts, err := strconv.ParseInt(rest[j+len(Separator):], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	return rest[:j], ts, int32(cnt), true
}
