// Package oauthstate defines the anti-CSRF state parameter contract used
// during the OAuth install flow: a signed, time-boxed opaque token embedding
// the original install-URL options, consumed at most once.
package oauthstate

import (
	"context"
	"time"
)

// InstallURLOptions are the options the install endpoint was called with.
// They ride inside the state parameter so the OAuth callback can complete
// the exchange with the same scopes and metadata the flow started with.
type InstallURLOptions struct {
	Scopes      []string `json:"scopes,omitempty"`
	UserScopes  []string `json:"userScopes,omitempty"`
	Metadata    string   `json:"metadata,omitempty"`
	TeamID      string   `json:"teamId,omitempty"`
	RedirectURI string   `json:"redirectUri,omitempty"`
}

// StateStore issues and verifies state parameters. The caller supplies now
// explicitly on both sides so verification is deterministic under test.
//
// VerifyStateParam consumes the token: persistent implementations delete it
// on every exit path, success or failure, so a second verification of the
// same token fails.
type StateStore interface {
	GenerateStateParam(ctx context.Context, opts InstallURLOptions, now time.Time) (string, error)
	VerifyStateParam(ctx context.Context, now time.Time, state string) (InstallURLOptions, error)
}
