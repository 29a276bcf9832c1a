package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"boltstore/internal/domain/installation"
	"boltstore/internal/shared/errors"
	"boltstore/internal/shared/logger"
)

// Verify interface compliance
var (
	_ installation.Store   = (*RedisInstallationStore)(nil)
	_ installation.Deleter = (*RedisInstallationStore)(nil)
)

const (
	defaultInstallationPrefix = "slack:installations:"
	installationRowsSuffix    = "rows"
	installationSeqSuffix     = "seq"
)

// redisInstallationRecord is the stored envelope: the whole installation
// document plus the tenant/scope fields the filters run against. Records
// live in one sorted set scored by an INCR sequence, so a reverse range
// scan yields latest-wins ordering.
type redisInstallationRecord struct {
	Seq                 int64                      `json:"seq"`
	ClientID            *string                    `json:"clientId,omitempty"`
	EnterpriseID        *string                    `json:"enterpriseId,omitempty"`
	TeamID              *string                    `json:"teamId,omitempty"`
	UserID              string                     `json:"userId"`
	IsEnterpriseInstall bool                       `json:"isEnterpriseInstall"`
	Installation        *installation.Installation `json:"installation"`
}

func (rec *redisInstallationRecord) matches(clientID *string, q installation.Query) bool {
	if !ptrEqual(rec.ClientID, clientID) {
		return false
	}
	if q.EnterpriseID != nil && !ptrEqual(rec.EnterpriseID, q.EnterpriseID) {
		return false
	}
	if q.IsEnterpriseInstall {
		if rec.TeamID != nil {
			return false
		}
	} else if q.TeamID != nil && !ptrEqual(rec.TeamID, q.TeamID) {
		return false
	}
	if q.UserID != nil && rec.UserID != *q.UserID {
		return false
	}
	return true
}

// RedisInstallationStoreOptions configures a Redis-backed installation
// store. Client is required; the connection is caller-owned.
type RedisInstallationStoreOptions struct {
	Client *redis.Client

	// Prefix namespaces the keys (default "slack:installations:").
	// Stores sharing one table share one prefix.
	Prefix string

	// ClientID is the tenant discriminator. Nil stores and matches records
	// without a client ID.
	ClientID *string

	// HistoricalDataEnabled selects append-only persistence (default true).
	HistoricalDataEnabled *bool

	Logger logger.Interface
}

// RedisInstallationStore implements installation.Store on Redis.
type RedisInstallationStore struct {
	client     *redis.Client
	prefix     string
	clientID   *string
	historical bool
	logger     logger.Interface
}

// NewRedisInstallationStore creates a new RedisInstallationStore.
func NewRedisInstallationStore(opts RedisInstallationStoreOptions) (*RedisInstallationStore, error) {
	if opts.Client == nil {
		return nil, errors.NewConfigurationError("a redis client is required to initialize the installation store")
	}
	s := &RedisInstallationStore{
		client:     opts.Client,
		prefix:     opts.Prefix,
		clientID:   opts.ClientID,
		historical: opts.HistoricalDataEnabled == nil || *opts.HistoricalDataEnabled,
		logger:     opts.Logger,
	}
	if s.prefix == "" {
		s.prefix = defaultInstallationPrefix
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	return s, nil
}

// StoreInstallation persists one grant event. Non-historical mode replaces
// the latest matching record, keeping its score; the read-then-write is
// not atomic and a concurrent store for the same scope may lose an update.
func (s *RedisInstallationStore) StoreInstallation(ctx context.Context, inst *installation.Installation) error {
	q := inst.Query()
	s.logger.Debug("#storeInstallation starts " + q.LogPart())

	stored := *inst
	if stored.InstalledAt.IsZero() {
		stored.InstalledAt = time.Now().UTC()
	}
	rec := &redisInstallationRecord{
		ClientID:            s.clientID,
		UserID:              inst.User.ID,
		IsEnterpriseInstall: inst.IsEnterpriseInstall,
		Installation:        &stored,
	}
	if inst.Enterprise != nil {
		rec.EnterpriseID = &inst.Enterprise.ID
	}
	if inst.Team != nil {
		rec.TeamID = &inst.Team.ID
	}

	var replaced *string
	if !s.historical {
		existing, member, err := s.findLatest(ctx, q)
		if err != nil {
			return err
		}
		if existing != nil {
			rec.Seq = existing.Seq
			replaced = &member
		}
	}
	if rec.Seq == 0 {
		seq, err := s.client.Incr(ctx, s.prefix+installationSeqSuffix).Result()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		rec.Seq = seq
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal installation record: %w", err)
	}
	if replaced != nil {
		if err := s.client.ZRem(ctx, s.rowsKey(), *replaced).Err(); err != nil {
			return fmt.Errorf("failed to replace installation record: %w", err)
		}
	}
	err = s.client.ZAdd(ctx, s.rowsKey(), redis.Z{
		Score:  float64(rec.Seq),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to store installation record: %w", err)
	}

	s.logger.Debug("#storeInstallation successfully completed " + q.LogPart())
	return nil
}

// FetchInstallation reconstructs the current installation for the query,
// overlaying the latest bot record's bot data in historical mode.
func (s *RedisInstallationStore) FetchInstallation(ctx context.Context, query installation.Query) (*installation.Installation, error) {
	s.logger.Debug("#fetchInstallation starts " + query.LogPart())

	rec, _, err := s.findLatest(ctx, query)
	if err != nil {
		return nil, err
	}
	if query.UserID != nil {
		botRec, _, err := s.findLatest(ctx, query.WithoutUser())
		if err != nil {
			return nil, err
		}
		if botRec != nil && botRec.Installation.Bot != nil {
			if rec != nil {
				rec.Installation.Bot = botRec.Installation.Bot
			} else {
				rec = botRec
			}
		}
	}
	if rec == nil {
		s.logger.Debug("#fetchInstallation didn't return any installation data " + query.LogPart())
		return nil, installation.NewNotFoundError(query)
	}
	s.logger.Debug("#fetchInstallation found the installation data " + query.LogPart())
	return rec.Installation, nil
}

// DeleteInstallation removes every record matching the query's filters.
func (s *RedisInstallationStore) DeleteInstallation(ctx context.Context, query installation.Query) error {
	s.logger.Debug("#deleteInstallation starts " + query.LogPart())

	members, err := s.client.ZRevRange(ctx, s.rowsKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to scan installation records: %w", err)
	}
	var toRemove []interface{}
	for _, member := range members {
		var rec redisInstallationRecord
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			continue
		}
		if rec.matches(s.clientID, query) {
			toRemove = append(toRemove, member)
		}
	}
	if len(toRemove) > 0 {
		if err := s.client.ZRem(ctx, s.rowsKey(), toRemove...).Err(); err != nil {
			return fmt.Errorf("failed to delete installation records: %w", err)
		}
	}

	s.logger.Debug(fmt.Sprintf("#deleteInstallation deleted %d records %s", len(toRemove), query.LogPart()))
	return nil
}

func (s *RedisInstallationStore) rowsKey() string {
	return s.prefix + installationRowsSuffix
}

// findLatest scans from the newest record backwards and returns the first
// match along with its raw member.
func (s *RedisInstallationStore) findLatest(ctx context.Context, q installation.Query) (*redisInstallationRecord, string, error) {
	members, err := s.client.ZRevRange(ctx, s.rowsKey(), 0, -1).Result()
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan installation records: %w", err)
	}
	for _, member := range members {
		var rec redisInstallationRecord
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			continue
		}
		if rec.matches(s.clientID, q) {
			return &rec, member, nil
		}
	}
	return nil, "", nil
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
