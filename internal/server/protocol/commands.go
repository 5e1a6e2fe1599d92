package protocol

import "strings"

// Command is a command-loop token.
type Command int

const (
	CommandUnknown Command = iota
	CommandBalance
	CommandAuthentication
	CommandRegistration
	CommandTransaction
)

var commandTokens = map[string]Command{
	"balance":        CommandBalance,
	"authentication": CommandAuthentication,
	"registration":   CommandRegistration,
	"transaction":    CommandTransaction,
}

// ParseCommand maps a token to its command. Matching is case-sensitive.
func ParseCommand(token string) Command {
	return commandTokens[token]
}

func (c Command) String() string {
	for token, cmd := range commandTokens {
		if cmd == c {
			return token
		}
	}
	return "unknown"
}

// Reply literals. Clients compare against these verbatim.
const (
	ReplyLoginOK                  = "Login OK."
	ReplyLoginInvalid             = "Login invalid."
	ReplyInvalidLoginFormat       = "Invalid login packet format."
	ReplyAuthenticationSuccessful = "Authentication successful."
	ReplyAuthenticationFailed     = "Authentication failed."
	ReplyRegistrationSuccessful   = "Registration successful."
	ReplyRegistrationFailed       = "Registration failed."
	ReplyTransactionSuccessful    = "Transaction successful."
	ReplyTransactionFailed        = "Transaction failed."
	ReplyInvalidTransactionFormat = "Invalid transaction packet format."
	ReplyInvalidNumberFormat      = "Invalid number format."
)

// BalancePrefix starts every balance reply.
const BalancePrefix = "Amount of money: "

const (
	// DevicePartLength is the length of each half of a device code.
	DevicePartLength = 4

	// MaxTransferAmount caps a single transaction; out-of-range requests
	// are raised or lowered to it.
	MaxTransferAmount = 10
)

// ConfirmationCode returns the four characters of deviceCode starting at
// index 2, the code the owner must echo to finish registration.
func ConfirmationCode(deviceCode string) string {
	r := []rune(deviceCode)
	if len(r) < 6 {
		return ""
	}
	return string(r[2:6])
}

// ClampAmount maps amounts outside [0, MaxTransferAmount] to MaxTransferAmount.
func ClampAmount(amount int) int {
	if amount < 0 || amount > MaxTransferAmount {
		return MaxTransferAmount
	}
	return amount
}

// splitFields splits s on sep and drops trailing empty fields. An empty s
// yields a single empty field.
func splitFields(s, sep string) []string {
	if s == "" {
		return []string{""}
	}
	parts := strings.Split(s, sep)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
