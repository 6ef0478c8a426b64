package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// KV is the byte store behind a CheckpointStore. Get returns nil, nil for a
// missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Run key prefixes
const (
	userKeyPrefix  = "user_"
	inputKeyPrefix = "input_"
)

// RunKey derives the checkpoint key of a run: the user id when known,
// otherwise the first 16 hex characters of the SHA-256 of the raw input.
func RunKey(userID uuid.UUID, raw string) string {
	if userID != uuid.Nil {
		return userKeyPrefix + userID.String()
	}
	sum := sha256.Sum256([]byte(raw))
	return inputKeyPrefix + hex.EncodeToString(sum[:])[:16]
}

// ParseRunKey checks that key has the shape produced by RunKey.
func ParseRunKey(key string) error {
	switch {
	case strings.HasPrefix(key, userKeyPrefix):
		if _, err := uuid.Parse(strings.TrimPrefix(key, userKeyPrefix)); err != nil {
			return &InputError{Field: "run_id", Message: "malformed user run id"}
		}
		return nil
	case strings.HasPrefix(key, inputKeyPrefix):
		h := strings.TrimPrefix(key, inputKeyPrefix)
		if _, err := hex.DecodeString(h); err != nil || len(h) != 16 {
			return &InputError{Field: "run_id", Message: "malformed input run id"}
		}
		return nil
	}
	return &InputError{Field: "run_id", Message: "run id must start with user_ or input_"}
}

// CheckpointStore keeps the last state of each run as JSON in a KV.
//
// Lock serializes callers working on the same key inside this process.
// Load and Save do not take the lock themselves.
type CheckpointStore struct {
	kv KV

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewCheckpointStore wraps kv.
func NewCheckpointStore(kv KV) *CheckpointStore {
	return &CheckpointStore{kv: kv, locks: make(map[string]*keyLock)}
}

// Lock acquires the per-key mutex and returns its release function.
func (c *CheckpointStore) Lock(key string) func() {
	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &keyLock{}
		c.locks[key] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}

// Save writes s under key.
func (c *CheckpointStore) Save(ctx context.Context, key string, s *State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint %s: %w", key, err)
	}
	if err := c.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %w", key, err)
	}
	return nil
}

// Load returns the state stored under key, or nil, nil when absent.
func (c *CheckpointStore) Load(ctx context.Context, key string) (*State, error) {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", key, err)
	}
	if data == nil {
		return nil, nil
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", key, err)
	}
	return &s, nil
}

// Delete removes the checkpoint of key.
func (c *CheckpointStore) Delete(ctx context.Context, key string) error {
	if err := c.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete checkpoint %s: %w", key, err)
	}
	return nil
}
