// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

// BadgerStore keeps conversations and profiles in an embedded Badger
// database. Suitable for single-node deployments and tests.
//
// Key layout:
//
//	users/<principal>/chats/<chatID>  -> JSON Conversation
//	users/<principal>/profile         -> JSON UserProfile
//
// The chat ID allocator strips '/' from identifiers, so chat keys cannot
// collide with the profile key.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", path, err)
	}
	slog.Info("Opened Badger conversation store", "path", path)
	return &BadgerStore{db: db}, nil
}

// NewInMemoryBadgerStore opens a non-persistent store. Used in tests.
func NewInMemoryBadgerStore() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory badger database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func conversationKey(principal, chatID string) []byte {
	return []byte("users/" + principal + "/chats/" + chatID)
}

func conversationPrefix(principal string) []byte {
	return []byte("users/" + principal + "/chats/")
}

func profileKey(principal string) []byte {
	return []byte("users/" + principal + "/profile")
}

// Exists implements the ConversationStore interface.
func (s *BadgerStore) Exists(_ context.Context, principal, chatID string) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(conversationKey(principal, chatID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check conversation %s: %w", chatID, err)
	}
	return exists, nil
}

// Get implements the ConversationStore interface.
func (s *BadgerStore) Get(_ context.Context, principal, chatID string) (*datatypes.Conversation, error) {
	var conv datatypes.Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(principal, chatID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", chatID, err)
	}
	conv.ID = chatID
	return &conv, nil
}

// Upsert implements the ConversationStore interface.
//
// The read-modify-write runs inside a single Badger transaction, so two
// concurrent writers to the same conversation serialize rather than
// silently losing an update.
func (s *BadgerStore) Upsert(_ context.Context, principal, chatID string, update ConversationUpdate) error {
	key := conversationKey(principal, chatID)
	err := s.db.Update(func(txn *badger.Txn) error {
		conv := datatypes.Conversation{}
		item, err := txn.Get(key)
		switch err {
		case nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &conv)
			}); err != nil {
				return err
			}
		case badger.ErrKeyNotFound:
			// New document.
		default:
			return err
		}

		if update.Title != nil {
			conv.Title = *update.Title
		}
		if update.CreatedAt != nil {
			conv.CreatedAt = *update.CreatedAt
		}
		conv.LastUpdated = update.LastUpdated
		if update.Messages != nil {
			conv.Messages = update.Messages
		}
		conv.ID = chatID

		data, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert conversation %s: %w", chatID, err)
	}
	return nil
}

// List implements the ConversationStore interface.
func (s *BadgerStore) List(_ context.Context, principal string) ([]datatypes.ConversationSummary, error) {
	prefix := conversationPrefix(principal)
	summaries := []datatypes.ConversationSummary{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			chatID := string(item.Key()[len(prefix):])
			var conv datatypes.Conversation
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &conv)
			}); err != nil {
				return err
			}
			summaries = append(summaries, datatypes.ConversationSummary{
				ID:           chatID,
				Title:        conv.Title,
				CreatedAt:    conv.CreatedAt,
				LastUpdated:  conv.LastUpdated,
				MessageCount: len(conv.Messages),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
	})
	return summaries, nil
}

// Delete implements the ConversationStore interface.
func (s *BadgerStore) Delete(_ context.Context, principal, chatID string) error {
	key := conversationKey(principal, chatID)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", chatID, err)
	}
	return nil
}

// UpsertProfile implements the ConversationStore interface.
//
// CreatedAt is preserved from an existing profile; first writes stamp it
// from UpdatedAt so the two start equal.
func (s *BadgerStore) UpsertProfile(_ context.Context, principal string, profile datatypes.UserProfile) error {
	key := profileKey(principal)
	err := s.db.Update(func(txn *badger.Txn) error {
		var existing datatypes.UserProfile
		item, err := txn.Get(key)
		switch err {
		case nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
			profile.CreatedAt = existing.CreatedAt
		case badger.ErrKeyNotFound:
			if profile.CreatedAt.IsZero() {
				profile.CreatedAt = profile.UpdatedAt
			}
		default:
			return err
		}

		data, err := json.Marshal(profile)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// GetProfile loads the principal's profile. Returns ErrNotFound when the
// principal has never stored one.
func (s *BadgerStore) GetProfile(_ context.Context, principal string) (*datatypes.UserProfile, error) {
	var profile datatypes.UserProfile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(principal))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &profile)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}

// Close implements the ConversationStore interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ ConversationStore = (*BadgerStore)(nil)
