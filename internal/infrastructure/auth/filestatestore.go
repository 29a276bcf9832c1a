package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"boltstore/internal/domain/oauthstate"
	"boltstore/internal/shared/errors"
	"boltstore/internal/shared/logger"
)

// Verify interface compliance
var _ oauthstate.StateStore = (*FileStateStore)(nil)

// indexFileName is the side file listing every active state key, one per
// line. Existence checks scan it instead of globbing the directory.
const indexFileName = "index"

// FileStateStoreOptions configures a filesystem-backed state store.
// StateSecret is required.
type FileStateStoreOptions struct {
	// StateSecret signs the state parameters.
	StateSecret string

	// BaseDir holds one file per active state (default
	// $HOME/.slack-oauth-states).
	BaseDir string

	// ExpirationSeconds bounds a state's validity (default 600).
	ExpirationSeconds int

	Logger logger.Interface
}

// FileStateStore keeps issued state parameters as files on local disk,
// which adds single-use enforcement on top of the signed token. Each state
// is stored under the shortest suffix of its token that is unique in the
// directory, so file names stay short while states remain distinguishable.
type FileStateStore struct {
	codec             StateCodec
	baseDir           string
	expirationSeconds int
	logger            logger.Interface
}

// NewFileStateStore creates a new FileStateStore. It fails fast when the
// signing secret is missing.
func NewFileStateStore(opts FileStateStoreOptions) (*FileStateStore, error) {
	if opts.StateSecret == "" {
		return nil, errors.NewConfigurationError("StateSecret is required to initialize the state store")
	}
	s := &FileStateStore{
		codec:             NewStateCodec(opts.StateSecret),
		baseDir:           opts.BaseDir,
		expirationSeconds: opts.ExpirationSeconds,
		logger:            opts.Logger,
	}
	if s.baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		s.baseDir = filepath.Join(home, ".slack-oauth-states")
	}
	if s.expirationSeconds <= 0 {
		s.expirationSeconds = DefaultStateExpirationSeconds
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	return s, nil
}

// GenerateStateParam signs the install options and records the resulting
// state on disk so verification can enforce single use.
func (s *FileStateStore) GenerateStateParam(ctx context.Context, opts oauthstate.InstallURLOptions, now time.Time) (string, error) {
	state, err := s.codec.Sign(opts, now)
	if err != nil {
		return "", err
	}
	if err := s.writeEntry(state); err != nil {
		return "", err
	}
	return state, nil
}

// VerifyStateParam consumes the state: whatever the outcome, the on-disk
// entry is removed before returning, so a second call with the same state
// fails as expired.
func (s *FileStateStore) VerifyStateParam(ctx context.Context, now time.Time, state string) (oauthstate.InstallURLOptions, error) {
	defer func() {
		if err := s.deleteEntry(state); err != nil {
			s.logger.Warn("failed to delete state entry", "error", err)
		}
	}()

	found, err := s.findEntry(state)
	if err != nil {
		return oauthstate.InstallURLOptions{}, err
	}
	if !found {
		return oauthstate.InstallURLOptions{}, oauthstate.NewInvalidStateError("The state value is already expired")
	}
	opts, issuedAt, err := s.codec.Parse(state)
	if err != nil {
		return oauthstate.InstallURLOptions{}, oauthstate.NewInvalidStateError("Failed to load the data represented by the state parameter")
	}
	if Elapsed(issuedAt, now) > s.expirationSeconds {
		return oauthstate.InstallURLOptions{}, oauthstate.NewInvalidStateError("The state value is already expired")
	}
	return opts, nil
}

// writeEntry stores the state under the shortest suffix of it that does not
// collide with an existing file, then appends that key to the index.
func (s *FileStateStore) writeEntry(state string) error {
	if err := os.MkdirAll(s.baseDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	for length := 1; length <= len(state); length++ {
		key := state[len(state)-length:]
		path := filepath.Join(s.baseDir, key)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to probe state file: %w", err)
		}
		if err := os.WriteFile(path, []byte(state), 0o600); err != nil {
			return fmt.Errorf("failed to write state file: %w", err)
		}
		return s.appendIndex(key)
	}
	return fmt.Errorf("failed to allocate a unique key for the state")
}

// findEntry reports whether the state was issued by this store and is still
// unconsumed.
func (s *FileStateStore) findEntry(state string) (bool, error) {
	keys, err := s.readIndex()
	if err != nil {
		return false, err
	}
	for _, key := range keys {
		if !strings.HasSuffix(state, key) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, key))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return false, fmt.Errorf("failed to read state file: %w", err)
		}
		if string(data) == state {
			return true, nil
		}
	}
	return false, nil
}

// deleteEntry removes the state's file and drops its key from the index.
func (s *FileStateStore) deleteEntry(state string) error {
	keys, err := s.readIndex()
	if err != nil {
		return err
	}
	var kept []string
	for _, key := range keys {
		if strings.HasSuffix(state, key) {
			data, err := os.ReadFile(filepath.Join(s.baseDir, key))
			if err == nil && string(data) == state {
				if err := os.Remove(filepath.Join(s.baseDir, key)); err != nil {
					return fmt.Errorf("failed to remove state file: %w", err)
				}
				continue
			}
		}
		kept = append(kept, key)
	}
	if len(kept) == len(keys) {
		return nil
	}
	return s.writeIndex(kept)
}

func (s *FileStateStore) indexPath() string {
	return filepath.Join(s.baseDir, indexFileName)
}

func (s *FileStateStore) readIndex() ([]string, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state index: %w", err)
	}
	var keys []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			keys = append(keys, line)
		}
	}
	return keys, nil
}

func (s *FileStateStore) appendIndex(key string) error {
	f, err := os.OpenFile(s.indexPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open state index: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(key + "\n"); err != nil {
		return fmt.Errorf("failed to append to state index: %w", err)
	}
	return nil
}

func (s *FileStateStore) writeIndex(keys []string) error {
	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(key)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(s.indexPath(), []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("failed to rewrite state index: %w", err)
	}
	return nil
}
