// Package dhke implements the per-connection Diffie-Hellman style key
// exchange that precedes every banking session.
//
// The group parameters are deliberately tiny (the lab ledger uses base 10,
// modulus 17) and exponents are plain integers, so the resulting secret is
// trivially brute-forceable. That weakness is part of the exercise.
//
// Wire exchange:
//
//	client -> server  "HELO"
//	server -> client  "<base>,<modulus>,<serverPart>"
//	client -> server  "<clientPart>"
package dhke

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

// HandshakeRequest is the literal the client opens the exchange with.
const HandshakeRequest = "HELO"

var (
	ErrInvalidParams = errors.New("invalid key exchange parameters")
	ErrInvalidOffer  = errors.New("invalid key exchange offer")
	ErrNoOffer       = errors.New("no key exchange offer received")
)

// Params are the public group parameters.
type Params struct {
	Base    int64
	Modulus int64
}

// Validate checks that the parameters can produce a usable exchange.
func (p Params) Validate() error {
	if p.Modulus < 2 {
		return fmt.Errorf("%w: modulus %d", ErrInvalidParams, p.Modulus)
	}
	if p.Base < 1 {
		return fmt.Errorf("%w: base %d", ErrInvalidParams, p.Base)
	}
	return nil
}

// ModPow returns base^exp mod mod using integer arithmetic. The result is
// exact for any exponent, unlike a float64 power reduced afterwards.
func ModPow(base, exp, mod int64) int64 {
	b := big.NewInt(base)
	e := big.NewInt(exp)
	m := big.NewInt(mod)
	return new(big.Int).Exp(b, e, m).Int64()
}

// Server holds the server half of one exchange. It must not be shared
// between connections.
type Server struct {
	params  Params
	rand    io.Reader
	secret  int64
	offered bool
}

// NewServer creates the server side of an exchange. A nil r selects
// crypto/rand.
func NewServer(p Params, r io.Reader) *Server {
	if r == nil {
		r = rand.Reader
	}
	return &Server{params: p, rand: r}
}

// Offer answers a handshake request. It picks the secret exponent uniformly
// in [0, modulus) and returns "<base>,<modulus>,<serverPart>". For any
// request other than HandshakeRequest it returns ok == false and no reply is
// due.
func (s *Server) Offer(request string) (reply string, ok bool, err error) {
	if request != HandshakeRequest {
		return "", false, nil
	}
	a, err := rand.Int(s.rand, big.NewInt(s.params.Modulus))
	if err != nil {
		return "", false, fmt.Errorf("pick server exponent: %w", err)
	}
	s.secret = a.Int64()
	s.offered = true

	serverPart := ModPow(s.params.Base, s.secret, s.params.Modulus)
	return FormatOffer(s.params, serverPart), true, nil
}

// Accept validates the client's public part and derives the shared secret.
// It reports ok == false when no offer was made, when the part does not parse
// or when it lies outside [0, modulus).
func (s *Server) Accept(clientPart string) (secret int64, ok bool) {
	if !s.offered {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(clientPart), 10, 64)
	if err != nil || v < 0 || v >= s.params.Modulus {
		return 0, false
	}
	return ModPow(v, s.secret, s.params.Modulus), true
}

// FormatOffer renders the server reply.
func FormatOffer(p Params, serverPart int64) string {
	return fmt.Sprintf("%d,%d,%d", p.Base, p.Modulus, serverPart)
}

// ParseOffer splits a server reply into its parameters and public part.
func ParseOffer(reply string) (Params, int64, error) {
	fields := strings.Split(reply, ",")
	if len(fields) != 3 {
		return Params{}, 0, fmt.Errorf("%w: %q", ErrInvalidOffer, reply)
	}
	var vals [3]int64
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return Params{}, 0, fmt.Errorf("%w: %q", ErrInvalidOffer, reply)
		}
		vals[i] = v
	}
	p := Params{Base: vals[0], Modulus: vals[1]}
	if err := p.Validate(); err != nil {
		return Params{}, 0, err
	}
	return p, vals[2], nil
}

// Client holds the client half of one exchange.
type Client struct {
	rand       io.Reader
	params     Params
	serverPart int64
	exponent   int64
	responded  bool
}

// NewClient creates the client side of an exchange. A nil r selects
// crypto/rand.
func NewClient(r io.Reader) *Client {
	if r == nil {
		r = rand.Reader
	}
	return &Client{rand: r}
}

// Respond parses the server offer, draws the client exponent and returns
// the client's public part.
//
// The exponent is drawn from a signed 32-bit source, reduced modulo the
// modulus (keeping the sign, as a remainder does) and redrawn until it is
// strictly positive.
func (c *Client) Respond(reply string) (string, error) {
	p, serverPart, err := ParseOffer(reply)
	if err != nil {
		return "", err
	}

	var b int64
	for b <= 0 {
		var buf [4]byte
		if _, err := io.ReadFull(c.rand, buf[:]); err != nil {
			return "", fmt.Errorf("draw client exponent: %w", err)
		}
		b = int64(int32(binary.BigEndian.Uint32(buf[:]))) % p.Modulus
	}

	c.params = p
	c.serverPart = serverPart
	c.exponent = b
	c.responded = true

	return strconv.FormatInt(ModPow(p.Base, b, p.Modulus), 10), nil
}

// Secret returns serverPart^b mod modulus. It fails if Respond has not
// completed.
func (c *Client) Secret() (int64, error) {
	if !c.responded {
		return 0, ErrNoOffer
	}
	return ModPow(c.serverPart, c.exponent, c.params.Modulus), nil
}
