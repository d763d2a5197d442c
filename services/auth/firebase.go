// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseVerifier validates Firebase ID tokens and extracts the verified
// email as the principal identifier.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier initializes the Firebase Admin SDK.
//
// Credentials come from FIREBASE_SERVICE_ACCOUNT_PATH when set, otherwise
// from application default credentials.
func NewFirebaseVerifier(ctx context.Context) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if path := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("firebase service account file not found at %s: %w", path, err)
		}
		opts = append(opts, option.WithCredentialsFile(path))
	} else {
		slog.Info("FIREBASE_SERVICE_ACCOUNT_PATH not set, using application default credentials")
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize the Firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize the Firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

// Verify implements the Verifier interface.
//
// A token that verifies but carries no email claim is rejected: the email
// is the partition key for conversation storage and is required.
func (v *FirebaseVerifier) Verify(ctx context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredential
	}

	token, err := v.client.VerifyIDToken(ctx, credential)
	if err != nil {
		slog.Error("Failed to verify Firebase ID token", "error", err)
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	email, ok := token.Claims["email"].(string)
	if !ok || email == "" {
		slog.Error("Verified token has no email claim", "uid", token.UID)
		return "", fmt.Errorf("%w: user email not found in token", ErrInvalidCredential)
	}
	return email, nil
}
