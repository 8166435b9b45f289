// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/models"
)

// ErrNotFound is returned by Store.Load when a user has no stored credentials.
var ErrNotFound = errors.New("credentials: not found")

// Store persists credential sets.
type Store interface {
	Load(ctx context.Context, userID string) (models.CredentialSet, error)
	Save(ctx context.Context, creds models.CredentialSet) error
}

const credentialPrefix = "cred:"

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open BadgerDB. The caller owns db and closes it.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func credentialKey(userID string) []byte {
	return []byte(credentialPrefix + userID)
}

// Load implements Store.
func (s *BadgerStore) Load(_ context.Context, userID string) (models.CredentialSet, error) {
	var creds models.CredentialSet
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(credentialKey(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &creds)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return models.CredentialSet{}, ErrNotFound
	}
	if err != nil {
		return models.CredentialSet{}, fmt.Errorf("load credentials for %s: %w", userID, err)
	}
	return creds, nil
}

// Save implements Store. UpdatedAt is set to the current time.
func (s *BadgerStore) Save(_ context.Context, creds models.CredentialSet) error {
	if creds.UserID == "" {
		return errors.New("credentials: user ID is required")
	}
	creds.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(credentialKey(creds.UserID), data)
	}); err != nil {
		return fmt.Errorf("save credentials for %s: %w", creds.UserID, err)
	}
	return nil
}

// Count returns the number of stored credential sets.
func (s *BadgerStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(credentialPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
