package platform

import (
	"sort"

	"github.com/matchvault/backend/internal/apperr"
)

// AccountConfig is the resolved credential set for one platform account.
type AccountConfig struct {
	Key          string
	ClientID     string
	ClientSecret string
	UserID       string
	AccountID    string
	Type         string // e.g. "club" or "league"
}

// Validate returns a config error when a credential is missing.
func (a AccountConfig) Validate() error {
	switch {
	case a.ClientID == "" || a.ClientSecret == "":
		return apperr.Config("platform account "+a.Key, "client id and secret required")
	case a.UserID == "":
		return apperr.Config("platform account "+a.Key, "user id required")
	case a.AccountID == "":
		return apperr.Config("platform account "+a.Key, "account id required")
	}
	return nil
}

// Accounts maps an account key to its configuration.
type Accounts map[string]AccountConfig

// Resolve returns the validated account for key.
func (a Accounts) Resolve(key string) (AccountConfig, error) {
	acc, ok := a[key]
	if !ok {
		return AccountConfig{}, apperr.Config("resolve platform account", "unknown account key: "+key)
	}
	acc.Key = key
	if err := acc.Validate(); err != nil {
		return AccountConfig{}, err
	}
	return acc, nil
}

// Keys returns the configured account keys in sorted order.
func (a Accounts) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
