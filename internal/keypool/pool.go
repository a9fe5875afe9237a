package keypool

import (
	"sort"
	"strconv"
	"strings"
)

const envPrefix = "GEMINI_ACCOUNT_"

// Account groups one or more interchangeable API keys that share a quota.
// When one key in an account hits a quota limit, the whole account is
// considered exhausted.
type Account struct {
	ID   string
	Keys []string
}

// LoadFromEnv builds the credential pool from environment variables of the
// form GEMINI_ACCOUNT_<account>_KEY_<key>, e.g.
//
//	GEMINI_ACCOUNT_1_KEY_1=AIzaSy...
//	GEMINI_ACCOUNT_1_KEY_2=AIzaSy...
//	GEMINI_ACCOUNT_2_KEY_1=AIzaSy...
//
// Keys are grouped by account id. Accounts are ordered numerically where
// both ids parse as integers, lexically otherwise; keys within an account
// are ordered by the full variable name. An environment with no matching
// variables yields an empty pool.
func LoadFromEnv(environ []string) []Account {
	type entry struct {
		name  string
		value string
	}
	byAccount := make(map[string][]entry)

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		if !strings.HasPrefix(name, envPrefix) {
			continue
		}
		rest := strings.TrimPrefix(name, envPrefix)
		accID, _, ok := strings.Cut(rest, "_KEY_")
		if !ok || accID == "" {
			continue
		}
		byAccount[accID] = append(byAccount[accID], entry{name: name, value: value})
	}

	ids := make([]string, 0, len(byAccount))
	for id := range byAccount {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})

	accounts := make([]Account, 0, len(ids))
	for _, id := range ids {
		entries := byAccount[id]
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].name < entries[j].name
		})
		keys := make([]string, len(entries))
		for i, e := range entries {
			keys[i] = e.value
		}
		accounts = append(accounts, Account{ID: id, Keys: keys})
	}

	return accounts
}
