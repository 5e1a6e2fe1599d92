package ledgerfile

import (
	"fmt"

	"github.com/dmitrijs2005/gophbank/internal/common"
)

const (
	// BasePort is added to the attacker group number to get the lab port.
	BasePort = 12300

	LabBase    = 10
	LabModulus = 17

	VictimCount = 4
)

// GenerateOptions describes one lab instance.
type GenerateOptions struct {
	Group  int
	Tokens [VictimCount]string
}

// Generate builds the lab ledger: a test user, the attacker account of the
// given group and four victims holding the tokens to be captured. Passwords
// are random digit strings.
func Generate(opts GenerateOptions) *File {
	attacker := fmt.Sprintf("group%d", opts.Group)

	users := []User{
		{Name: "test", Email: "its@its-bank", Password: "test", Money: 10, Devices: []string{"abcdefgh"}},
		{Name: attacker, Email: attacker + "@its-bank", Password: common.RandomDigits(4), Money: 1000, Devices: []string{}, CTFGroup: opts.Group},
	}

	// victim 1 starts without a device; the weaker victims get shorter PINs
	passwordLen := [VictimCount]int{10, 10, 4, 4}
	for i := 0; i < VictimCount; i++ {
		name := fmt.Sprintf("victim%d", i+1)
		devices := []string{}
		if i > 0 {
			devices = append(devices, common.RandomAlphaNum(8))
		}
		users = append(users, User{
			Name:     name,
			Email:    name + "@its-bank",
			Password: common.RandomDigits(passwordLen[i]),
			Money:    1000,
			Devices:  devices,
			Token:    opts.Tokens[i],
		})
	}

	return &File{
		Port:     BasePort + opts.Group,
		DHBase:   LabBase,
		DHModulo: LabModulus,
		Users:    users,
	}
}
