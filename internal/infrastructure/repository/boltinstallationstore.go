package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"boltstore/internal/domain/installation"
	"boltstore/internal/shared/errors"
	"boltstore/internal/shared/logger"
)

// Verify interface compliance
var (
	_ installation.Store   = (*BoltInstallationStore)(nil)
	_ installation.Deleter = (*BoltInstallationStore)(nil)
	_ installation.Closer  = (*BoltInstallationStore)(nil)
)

const defaultBoltBucket = "slack_app_installations"

// boltInstallationRecord is the stored envelope: the whole installation
// document plus the tenant/scope columns the filters run against.
type boltInstallationRecord struct {
	Seq                 uint64                     `json:"seq"`
	ClientID            *string                    `json:"clientId,omitempty"`
	EnterpriseID        *string                    `json:"enterpriseId,omitempty"`
	TeamID              *string                    `json:"teamId,omitempty"`
	UserID              string                     `json:"userId"`
	IsEnterpriseInstall bool                       `json:"isEnterpriseInstall"`
	Installation        *installation.Installation `json:"installation"`
}

func (rec *boltInstallationRecord) matches(clientID *string, q installation.Query) bool {
	if !ptrStrEqual(rec.ClientID, clientID) {
		return false
	}
	if q.EnterpriseID != nil && !ptrStrEqual(rec.EnterpriseID, q.EnterpriseID) {
		return false
	}
	if q.IsEnterpriseInstall {
		if rec.TeamID != nil {
			return false
		}
	} else if q.TeamID != nil && !ptrStrEqual(rec.TeamID, q.TeamID) {
		return false
	}
	if q.UserID != nil && rec.UserID != *q.UserID {
		return false
	}
	return true
}

// BoltInstallationStoreOptions configures a bbolt-backed installation
// store. Either DB or Path is required.
type BoltInstallationStoreOptions struct {
	// DB is a caller-owned handle; multiple stores may share it. Close never
	// releases it.
	DB *bbolt.DB

	// Path opens a store-owned database file. Close releases it.
	Path string

	// Bucket overrides the default bucket name.
	Bucket string

	// ClientID is the tenant discriminator. Nil stores and matches records
	// without a client ID.
	ClientID *string

	// HistoricalDataEnabled selects append-only persistence (default true).
	HistoricalDataEnabled *bool

	Logger logger.Interface
}

// BoltInstallationStore implements installation.Store on an embedded bbolt
// key-value file. Records are keyed by a monotonically increasing sequence
// so a reverse cursor scan yields latest-wins ordering.
type BoltInstallationStore struct {
	db         *bbolt.DB
	ownsDB     bool
	bucket     []byte
	clientID   *string
	historical bool
	logger     logger.Interface
}

// NewBoltInstallationStore creates a new BoltInstallationStore. It fails
// fast when neither a DB handle nor a path is supplied.
func NewBoltInstallationStore(opts BoltInstallationStoreOptions) (*BoltInstallationStore, error) {
	if opts.DB == nil && opts.Path == "" {
		return nil, errors.NewConfigurationError("either DB or Path is required to initialize the installation store")
	}

	s := &BoltInstallationStore{
		db:         opts.DB,
		bucket:     []byte(opts.Bucket),
		clientID:   opts.ClientID,
		historical: opts.HistoricalDataEnabled == nil || *opts.HistoricalDataEnabled,
		logger:     opts.Logger,
	}
	if opts.Bucket == "" {
		s.bucket = []byte(defaultBoltBucket)
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	if s.db == nil {
		db, err := bbolt.Open(opts.Path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt database: %w", err)
		}
		s.db = db
		s.ownsDB = true
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	}); err != nil {
		if s.ownsDB {
			s.db.Close()
		}
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return s, nil
}

// StoreInstallation persists one grant event. Non-historical mode rewrites
// the latest matching record in place, keeping its sequence key.
func (s *BoltInstallationStore) StoreInstallation(ctx context.Context, inst *installation.Installation) error {
	q := inst.Query()
	s.logger.Debug("#storeInstallation starts " + q.LogPart())

	stored := *inst
	if stored.InstalledAt.IsZero() {
		stored.InstalledAt = time.Now().UTC()
	}
	rec := &boltInstallationRecord{
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

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		key := []byte(nil)
		if !s.historical {
			if existing, existingKey := s.latestInBucket(b, q); existing != nil {
				rec.Seq = existing.Seq
				key = existingKey
			}
		}
		if key == nil {
			seq, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence: %w", err)
			}
			rec.Seq = seq
			key = itob(seq)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal installation record: %w", err)
		}
		return b.Put(key, data)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("#storeInstallation successfully completed " + q.LogPart())
	return nil
}

// FetchInstallation reconstructs the current installation for the query,
// overlaying the latest bot record's bot data in historical mode.
func (s *BoltInstallationStore) FetchInstallation(ctx context.Context, query installation.Query) (*installation.Installation, error) {
	s.logger.Debug("#fetchInstallation starts " + query.LogPart())

	var result *installation.Installation
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		rec, _ := s.latestInBucket(b, query)
		if query.UserID != nil {
			botRec, _ := s.latestInBucket(b, query.WithoutUser())
			if botRec != nil && botRec.Installation.Bot != nil {
				if rec != nil {
					rec.Installation.Bot = botRec.Installation.Bot
				} else {
					rec = botRec
				}
			}
		}
		if rec != nil {
			result = rec.Installation
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		s.logger.Debug("#fetchInstallation didn't return any installation data " + query.LogPart())
		return nil, installation.NewNotFoundError(query)
	}
	s.logger.Debug("#fetchInstallation found the installation data " + query.LogPart())
	return result, nil
}

// DeleteInstallation removes every record matching the query's filters.
func (s *BoltInstallationStore) DeleteInstallation(ctx context.Context, query installation.Query) error {
	s.logger.Debug("#deleteInstallation starts " + query.LogPart())

	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var keys [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec boltInstallationRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal installation record: %w", err)
			}
			if rec.matches(s.clientID, query) {
				keys = append(keys, append([]byte(nil), k...))
			}
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("failed to delete installation record: %w", err)
			}
		}
		deleted = len(keys)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug(fmt.Sprintf("#deleteInstallation deleted %d records %s", deleted, query.LogPart()))
	return nil
}

// Close releases the database file when the store opened it itself.
func (s *BoltInstallationStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// latestInBucket scans from the newest record backwards and returns the
// first match, along with its key.
func (s *BoltInstallationStore) latestInBucket(b *bbolt.Bucket, q installation.Query) (*boltInstallationRecord, []byte) {
	c := b.Cursor()
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		var rec boltInstallationRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			continue
		}
		if rec.matches(s.clientID, q) {
			return &rec, append([]byte(nil), k...)
		}
	}
	return nil, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func ptrStrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
