package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stellardominion/server/internal/config"
	"github.com/stellardominion/server/internal/world"
	"go.uber.org/zap"
)

// Record describes one stored save.
type Record struct {
	ID      uuid.UUID
	Slot    string
	Tick    uint64
	Version int
	Size    int
	SavedAt time.Time
}

// Store keeps named save slots. Saving to an occupied slot replaces it.
type Store interface {
	Save(ctx context.Context, slot string, snap *world.Snapshot) (Record, error)
	Load(ctx context.Context, slot string) (*world.Snapshot, Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}

// Open connects the configured backend and applies pending migrations.
// An empty driver yields a nil store (saving disabled).
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "postgres":
		db, err := NewDB(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, db.Pool); err != nil {
			db.Close()
			return nil, err
		}
		return NewPostgresStore(db), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("open store: unknown driver %q", cfg.Driver)
	}
}

func newRecord(slot string, snap *world.Snapshot, size int) Record {
	return Record{
		ID:      uuid.New(),
		Slot:    slot,
		Tick:    snap.Tick,
		Version: snap.Version,
		Size:    size,
		SavedAt: time.Now().UTC(),
	}
}

func validSlot(slot string) error {
	if slot == "" || len(slot) > 64 {
		return fmt.Errorf("invalid save slot %q", slot)
	}
	return nil
}
