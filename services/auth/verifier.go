// Copyright (C) 2026 Lexhaven Labs (engineering@lexhaven.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package auth adapts external identity providers into one small contract:
// a bearer credential in, a verified principal identifier out.
//
// Verification failures are always terminal for the current request. No
// implementation retries, and no implementation mutates any state.
package auth

import (
	"context"
	"errors"
)

// Rejection reasons. Handlers map both onto a 401 response; the distinction
// exists for logs and tests.
var (
	// ErrMissingCredential means the request carried no credential at all.
	ErrMissingCredential = errors.New("auth: no credential provided")

	// ErrInvalidCredential means verification failed, or the verified
	// identity lacks the stable identifier this service partitions by.
	ErrInvalidCredential = errors.New("auth: credential verification failed")
)

// Verifier turns a bearer credential into a verified principal identifier.
//
// The principal is an email-equivalent stable string used purely as the
// storage partition key for conversations.
type Verifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// StaticVerifier authenticates against a fixed token-to-principal table.
//
// This is the local development mode: it lets the service run without any
// identity infrastructure. Never use it in production.
type StaticVerifier struct {
	principals map[string]string
}

// NewStaticVerifier builds a verifier over a token → principal map.
func NewStaticVerifier(principals map[string]string) *StaticVerifier {
	return &StaticVerifier{principals: principals}
}

// Verify implements the Verifier interface.
func (v *StaticVerifier) Verify(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", ErrMissingCredential
	}
	principal, ok := v.principals[credential]
	if !ok || principal == "" {
		return "", ErrInvalidCredential
	}
	return principal, nil
}
