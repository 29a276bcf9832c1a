package auth

import (
	"context"
	"time"

	"boltstore/internal/domain/oauthstate"
)

// Verify interface compliance
var _ oauthstate.StateStore = (*ClearStateStore)(nil)

// DefaultStateExpirationSeconds is how long a state parameter stays valid
// when no expiration is configured.
const DefaultStateExpirationSeconds = 600

// ClearStateStore issues self-contained state parameters: the signed token
// carries everything needed for verification, so no server-side storage is
// involved. The trade-off is single-use enforcement; a token verifies
// successfully any number of times until it expires.
type ClearStateStore struct {
	codec             StateCodec
	expirationSeconds int
}

// NewClearStateStore creates a ClearStateStore signing with the given
// secret. A non-positive expiration falls back to the default.
func NewClearStateStore(secret string, expirationSeconds int) *ClearStateStore {
	if expirationSeconds <= 0 {
		expirationSeconds = DefaultStateExpirationSeconds
	}
	return &ClearStateStore{
		codec:             NewStateCodec(secret),
		expirationSeconds: expirationSeconds,
	}
}

// GenerateStateParam signs the install options into a state parameter.
func (s *ClearStateStore) GenerateStateParam(ctx context.Context, opts oauthstate.InstallURLOptions, now time.Time) (string, error) {
	return s.codec.Sign(opts, now)
}

// VerifyStateParam checks the signature and the elapsed time against the
// configured expiration, returning the embedded install options.
func (s *ClearStateStore) VerifyStateParam(ctx context.Context, now time.Time, state string) (oauthstate.InstallURLOptions, error) {
	opts, issuedAt, err := s.codec.Parse(state)
	if err != nil {
		return oauthstate.InstallURLOptions{}, oauthstate.NewInvalidStateError("Failed to load the data represented by the state parameter")
	}
	if Elapsed(issuedAt, now) > s.expirationSeconds {
		return oauthstate.InstallURLOptions{}, oauthstate.NewInvalidStateError("The state value is already expired")
	}
	return opts, nil
}
