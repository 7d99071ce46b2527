// Package nameservice reads a folder of account keys and creates a directory
// of public keys and names for the accounts.
package nameservice

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotFound is returned when an account is not known to the name service.
var ErrNotFound = errors.New("account not found")

// entry is what is known about a single account.
type entry struct {
	name      string
	publicKey *ecdsa.PublicKey
}

// NameService maintains a map of accounts for name and public key lookup.
type NameService struct {
	accounts map[database.AccountID]entry
	mu       sync.RWMutex
}

// New constructs an empty name service.
func New() *NameService {
	return &NameService{
		accounts: make(map[database.AccountID]entry),
	}
}

// Load constructs a name service with accounts from the .ecdsa files found
// under the root folder. The file name becomes the account name.
func Load(root string) (*NameService, error) {
	ns := New()

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		ns.Add(strings.TrimSuffix(path.Base(fileName), ".ecdsa"), &privateKey.PublicKey)

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return ns, nil
}

// Add registers the public key under the specified name and returns the
// account it belongs to.
func (ns *NameService) Add(name string, publicKey *ecdsa.PublicKey) database.AccountID {
	accountID := database.PublicKeyToAccountID(*publicKey)

	ns.mu.Lock()
	defer ns.mu.Unlock()

	ns.accounts[accountID] = entry{
		name:      name,
		publicKey: publicKey,
	}

	return accountID
}

// LookupKey returns the public key for the specified account.
func (ns *NameService) LookupKey(accountID database.AccountID) (*ecdsa.PublicKey, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	e, exists := ns.accounts[accountID]
	if !exists {
		return nil, fmt.Errorf("%s: %w", accountID, ErrNotFound)
	}

	return e.publicKey, nil
}

// Lookup returns the name for the specified account.
func (ns *NameService) Lookup(accountID database.AccountID) string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	e, exists := ns.accounts[accountID]
	if !exists {
		return string(accountID)
	}
	return e.name
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[database.AccountID]string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	cpy := make(map[database.AccountID]string, len(ns.accounts))
	for accountID, e := range ns.accounts {
		cpy[accountID] = e.name
	}
	return cpy
}
