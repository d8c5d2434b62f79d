package offset

import (
	"context"
	"fmt"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
)

// Scope prefixes every checkpoint key written by live-tail producers
const Scope = "livetail"

// CheckpointStore stores and retrieves live-tail resume positions per log class.
// Values are rendered cursor tokens, so a stored position survives restarts
// exactly like a cursor handed to a client.
// Implementations: BoltDB (primary), Redis (optional), Nop (disabled)
type CheckpointStore interface {
	// Get retrieves the checkpoint of a log class.
	// Returns nil (and no error) if nothing is stored
	Get(ctx context.Context, logClass string) (domain.Cursor, error)

	// Set stores the checkpoint of a log class
	Set(ctx context.Context, logClass string, c domain.Cursor) error

	// Delete removes the checkpoint of a log class
	Delete(ctx context.Context, logClass string) error

	// List returns all stored checkpoints by log class
	List(ctx context.Context) (map[string]domain.Cursor, error)

	// Close closes the store
	Close() error
}

// makeKey creates a composite key from scope and log class
func makeKey(scope, logClass string) string {
	return fmt.Sprintf("%s:%s", scope, logClass)
}

func encode(c domain.Cursor) ([]byte, error) {
	token, err := domain.RenderCursor(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return []byte(token), nil
}

func decode(val []byte) (domain.Cursor, error) {
	c, err := domain.ParseCursor(string(val))
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return c, nil
}

// NopStore never persists anything; producers then always start from the live edge
type NopStore struct{}

func (NopStore) Get(context.Context, string) (domain.Cursor, error) { return nil, nil }

func (NopStore) Set(context.Context, string, domain.Cursor) error { return nil }

func (NopStore) Delete(context.Context, string) error { return nil }

func (NopStore) List(context.Context) (map[string]domain.Cursor, error) {
	return map[string]domain.Cursor{}, nil
}

func (NopStore) Close() error { return nil }
