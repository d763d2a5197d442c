// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lexhaven/lawbot/services/orchestrator/datatypes"
)

// FirestoreStore keeps conversations under users/<principal>/chats/<chatID>
// and the profile fields on the users/<principal> document itself.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to Firestore for the given project.
//
// Credentials come from FIRESTORE_CREDENTIALS_PATH when set, otherwise
// from application default credentials.
func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}

	var opts []option.ClientOption
	if path := os.Getenv("FIRESTORE_CREDENTIALS_PATH"); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	slog.Info("Connected to Firestore conversation store", "project", projectID)
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) chatDoc(principal, chatID string) *firestore.DocumentRef {
	return s.client.Collection("users").Doc(principal).Collection("chats").Doc(chatID)
}

// Exists implements the ConversationStore interface.
func (s *FirestoreStore) Exists(ctx context.Context, principal, chatID string) (bool, error) {
	_, err := s.chatDoc(principal, chatID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check conversation %s: %w", chatID, err)
	}
	return true, nil
}

// Get implements the ConversationStore interface.
func (s *FirestoreStore) Get(ctx context.Context, principal, chatID string) (*datatypes.Conversation, error) {
	snap, err := s.chatDoc(principal, chatID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", chatID, err)
	}

	var conv datatypes.Conversation
	if err := snap.DataTo(&conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", chatID, err)
	}
	conv.ID = chatID
	return &conv, nil
}

// Upsert implements the ConversationStore interface.
//
// Uses a merge write so absent fields in the update never clobber stored
// ones; a continuing turn touches only lastUpdated and messages.
func (s *FirestoreStore) Upsert(ctx context.Context, principal, chatID string, update ConversationUpdate) error {
	data := map[string]interface{}{
		"lastUpdated": update.LastUpdated,
	}
	if update.Title != nil {
		data["title"] = *update.Title
	}
	if update.CreatedAt != nil {
		data["createdAt"] = *update.CreatedAt
	}
	if update.Messages != nil {
		data["messages"] = update.Messages
	}

	if _, err := s.chatDoc(principal, chatID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to upsert conversation %s: %w", chatID, err)
	}
	return nil
}

// List implements the ConversationStore interface.
func (s *FirestoreStore) List(ctx context.Context, principal string) ([]datatypes.ConversationSummary, error) {
	iter := s.client.Collection("users").Doc(principal).Collection("chats").
		OrderBy("lastUpdated", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	summaries := []datatypes.ConversationSummary{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}

		var conv datatypes.Conversation
		if err := snap.DataTo(&conv); err != nil {
			return nil, fmt.Errorf("failed to decode conversation %s: %w", snap.Ref.ID, err)
		}
		summaries = append(summaries, datatypes.ConversationSummary{
			ID:           snap.Ref.ID,
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			LastUpdated:  conv.LastUpdated,
			MessageCount: len(conv.Messages),
		})
	}
	return summaries, nil
}

// Delete implements the ConversationStore interface.
func (s *FirestoreStore) Delete(ctx context.Context, principal, chatID string) error {
	doc := s.chatDoc(principal, chatID)
	_, err := doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check conversation %s: %w", chatID, err)
	}

	if _, err := doc.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete conversation %s: %w", chatID, err)
	}
	return nil
}

// UpsertProfile implements the ConversationStore interface.
func (s *FirestoreStore) UpsertProfile(ctx context.Context, principal string, profile datatypes.UserProfile) error {
	doc := s.client.Collection("users").Doc(principal)

	data := map[string]interface{}{
		"firstName": profile.FirstName,
		"lastName":  profile.LastName,
		"gender":    profile.Gender,
		"country":   profile.Country,
		"email":     profile.Email,
		"updatedAt": profile.UpdatedAt,
	}

	snap, err := doc.Get(ctx)
	if status.Code(err) == codes.NotFound || (err == nil && !snap.Exists()) {
		data["createdAt"] = profile.UpdatedAt
	} else if err != nil {
		return fmt.Errorf("failed to check profile: %w", err)
	}

	if _, err := doc.Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Close implements the ConversationStore interface.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

var _ ConversationStore = (*FirestoreStore)(nil)
