package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the console's entries in the OS keychain.
const KeyringService = "scholar-console"

// KeyringPersister keeps the snapshot, bearer token included, in the OS
// keychain under KeyringService/Account.
type KeyringPersister struct {
	Account string
}

func (p *KeyringPersister) account() string {
	if p.Account == "" {
		return SnapshotKey
	}
	return p.Account
}

func (p *KeyringPersister) Load(_ context.Context) (Snapshot, error) {
	raw, err := keyring.Get(KeyringService, p.account())
	if errors.Is(err, keyring.ErrNotFound) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read keychain: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode keychain state: %w", err)
	}
	return snap, nil
}

// Save replaces the entry. A signed-out snapshot deletes it.
func (p *KeyringPersister) Save(_ context.Context, snap Snapshot) error {
	if !snap.Auth.IsAuthenticated && snap.Auth.Token == "" && snap.Tenant.Current == nil {
		err := keyring.Delete(KeyringService, p.account())
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("clear keychain: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := keyring.Set(KeyringService, p.account(), string(data)); err != nil {
		return fmt.Errorf("write keychain: %w", err)
	}
	return nil
}
