// Package ledgerfile loads and saves the ledger configuration file: the
// listening port, the key-exchange parameters and the initial accounts.
// Files ending in .yaml or .yml are YAML; anything else is JSON.
package ledgerfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/gophbank/internal/common"
	"github.com/dmitrijs2005/gophbank/internal/dhke"
	"github.com/dmitrijs2005/gophbank/internal/filex"
	"github.com/dmitrijs2005/gophbank/internal/server/ledger"
)

// User is one account as stored in the file.
type User struct {
	Name     string   `json:"name" yaml:"name"`
	Email    string   `json:"email" yaml:"email"`
	Password string   `json:"password" yaml:"password"`
	Money    int      `json:"money" yaml:"money"`
	Devices  []string `json:"devices" yaml:"devices"`
	CTFGroup int      `json:"ctfgroup" yaml:"ctfgroup"`
	Token    string   `json:"token" yaml:"token"`
}

// File is the whole ledger file.
type File struct {
	Port     int    `json:"port" yaml:"port"`
	DHBase   int64  `json:"dh_base" yaml:"dh_base"`
	DHModulo int64  `json:"dh_modulo" yaml:"dh_modulo"`
	Users    []User `json:"users" yaml:"users"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	f := &File{}
	if isYAML(path) {
		err = yaml.Unmarshal(b, f)
	} else {
		err = json.Unmarshal(b, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: ledger file %s: %v", common.ErrorInvalidFormat, path, err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the key-exchange parameters and account names.
func (f *File) Validate() error {
	if err := f.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInvalidFormat, err)
	}
	seen := make(map[string]struct{}, len(f.Users))
	for i, u := range f.Users {
		if u.Name == "" {
			return fmt.Errorf("%w: user %d has no name", common.ErrorInvalidFormat, i)
		}
		key := strings.ToLower(u.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate user %q", common.ErrorInvalidFormat, u.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Save writes f to path, replacing any existing file.
func Save(path string, f *File) error {
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(f)
	} else {
		b, err = json.MarshalIndent(f, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode ledger file: %w", err)
	}
	return filex.WriteFileAtomic(path, b, 0o600)
}

// Params returns the key-exchange parameters.
func (f *File) Params() dhke.Params {
	return dhke.Params{Base: f.DHBase, Modulus: f.DHModulo}
}

// Accounts converts the stored users for ledger.New.
func (f *File) Accounts() []ledger.Account {
	out := make([]ledger.Account, 0, len(f.Users))
	for _, u := range f.Users {
		out = append(out, ledger.Account{
			Name:     u.Name,
			Email:    u.Email,
			Password: u.Password,
			Balance:  u.Money,
			Devices:  slices.Clone(u.Devices),
			GroupID:  u.CTFGroup,
			Token:    u.Token,
		})
	}
	return out
}

// WithAccounts returns a copy of f whose users are replaced by accounts,
// typically a ledger snapshot taken at shutdown.
func (f *File) WithAccounts(accounts []ledger.Account) *File {
	out := &File{Port: f.Port, DHBase: f.DHBase, DHModulo: f.DHModulo}
	for _, a := range accounts {
		devices := a.Devices
		if devices == nil {
			devices = []string{}
		}
		out.Users = append(out.Users, User{
			Name:     a.Name,
			Email:    a.Email,
			Password: a.Password,
			Money:    a.Balance,
			Devices:  devices,
			CTFGroup: a.GroupID,
			Token:    a.Token,
		})
	}
	return out
}
