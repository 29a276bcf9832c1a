package cache

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"boltstore/internal/domain/oauthstate"
	"boltstore/internal/infrastructure/auth"
	"boltstore/internal/shared/errors"
	"boltstore/internal/shared/logger"
)

// Verify interface compliance
var _ oauthstate.StateStore = (*RedisStateStore)(nil)

const defaultStatePrefix = "slack:oauth:state:"

// RedisStateStore keeps issued state parameters in Redis, which adds
// single-use enforcement on top of the signed token: verification consumes
// the key with an atomic GETDEL, so the same state can never be accepted
// twice, even under concurrent callbacks. Keys also carry a Redis TTL, so
// abandoned flows clean themselves up.
type RedisStateStore struct {
	client            *redis.Client
	prefix            string
	codec             auth.StateCodec
	expirationSeconds int
	logger            logger.Interface
}

// RedisStateStoreOptions configures a Redis-backed state store. Client and
// StateSecret are required; the connection is caller-owned.
type RedisStateStoreOptions struct {
	Client *redis.Client

	// StateSecret signs the state parameters.
	StateSecret string

	// Prefix namespaces the keys (default "slack:oauth:state:").
	Prefix string

	// ExpirationSeconds bounds a state's validity (default 600).
	ExpirationSeconds int

	Logger logger.Interface
}

// NewRedisStateStore creates a new RedisStateStore. It fails fast when the
// client or the signing secret is missing.
func NewRedisStateStore(opts RedisStateStoreOptions) (*RedisStateStore, error) {
	if opts.Client == nil {
		return nil, errors.NewConfigurationError("a redis client is required to initialize the state store")
	}
	if opts.StateSecret == "" {
		return nil, errors.NewConfigurationError("StateSecret is required to initialize the state store")
	}
	s := &RedisStateStore{
		client:            opts.Client,
		prefix:            opts.Prefix,
		codec:             auth.NewStateCodec(opts.StateSecret),
		expirationSeconds: opts.ExpirationSeconds,
		logger:            opts.Logger,
	}
	if s.prefix == "" {
		s.prefix = defaultStatePrefix
	}
	if s.expirationSeconds <= 0 {
		s.expirationSeconds = auth.DefaultStateExpirationSeconds
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	return s, nil
}

// GenerateStateParam signs the install options and records the resulting
// state in Redis with the configured TTL.
func (s *RedisStateStore) GenerateStateParam(ctx context.Context, opts oauthstate.InstallURLOptions, now time.Time) (string, error) {
	state, err := s.codec.Sign(opts, now)
	if err != nil {
		return "", err
	}
	ttl := time.Duration(s.expirationSeconds) * time.Second
	if err := s.client.Set(ctx, s.buildKey(state), "1", ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store state in redis: %w", err)
	}
	return state, nil
}

// VerifyStateParam consumes the state with an atomic GETDEL and checks both
// the signature and the elapsed time. A state that was never issued, has
// expired out of Redis, or was already consumed all fail the same way.
func (s *RedisStateStore) VerifyStateParam(ctx context.Context, now time.Time, state string) (oauthstate.InstallURLOptions, error) {
	_, err := s.client.GetDel(ctx, s.buildKey(state)).Result()
	if err != nil {
		if goerrors.Is(err, redis.Nil) {
			return oauthstate.InstallURLOptions{}, oauthstate.NewInvalidStateError("The state value is already expired")
		}
		return oauthstate.InstallURLOptions{}, fmt.Errorf("failed to retrieve state from redis: %w", err)
	}
	opts, issuedAt, err := s.codec.Parse(state)
	if err != nil {
		return oauthstate.InstallURLOptions{}, oauthstate.NewInvalidStateError("Failed to load the data represented by the state parameter")
	}
	if auth.Elapsed(issuedAt, now) > s.expirationSeconds {
		return oauthstate.InstallURLOptions{}, oauthstate.NewInvalidStateError("The state value is already expired")
	}
	return opts, nil
}

func (s *RedisStateStore) buildKey(state string) string {
	return s.prefix + state
}
