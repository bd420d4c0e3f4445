package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stellardominion/server/internal/world"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps save slots in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dsn and migrates it.
// Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrateSQLite(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, slot string, snap *world.Snapshot) (Record, error) {
	if err := validSlot(slot); err != nil {
		return Record{}, err
	}
	payload, sum, err := Encode(snap)
	if err != nil {
		return Record{}, err
	}
	rec := newRecord(slot, snap, len(payload))
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saves (slot, id, tick, version, payload, checksum, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (slot) DO UPDATE SET
		   id = excluded.id, tick = excluded.tick, version = excluded.version,
		   payload = excluded.payload, checksum = excluded.checksum, saved_at = excluded.saved_at`,
		slot, rec.ID.String(), int64(rec.Tick), rec.Version, payload, sum[:], rec.SavedAt.UnixNano(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("save slot %s: %w", slot, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Load(ctx context.Context, slot string) (*world.Snapshot, Record, error) {
	var (
		id       string
		tick     int64
		savedAt  int64
		payload  []byte
		checksum []byte
		rec      = Record{Slot: slot}
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tick, version, payload, checksum, saved_at FROM saves WHERE slot = ?`, slot,
	).Scan(&id, &tick, &rec.Version, &payload, &checksum, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Record{}, fmt.Errorf("load slot %s: %w", slot, ErrNoSave)
	}
	if err != nil {
		return nil, Record{}, fmt.Errorf("load slot %s: %w", slot, err)
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, Record{}, fmt.Errorf("load slot %s: %w: %v", slot, ErrCorrupt, err)
	}
	rec.Tick = uint64(tick)
	rec.Size = len(payload)
	rec.SavedAt = time.Unix(0, savedAt).UTC()
	sum, err := checksumFrom(checksum)
	if err != nil {
		return nil, Record{}, fmt.Errorf("load slot %s: %w", slot, err)
	}
	snap, err := Decode(payload, sum)
	if err != nil {
		return nil, Record{}, fmt.Errorf("load slot %s: %w", slot, err)
	}
	return snap, rec, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, id, tick, version, length(payload), saved_at FROM saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r       Record
			id      string
			tick    int64
			savedAt int64
		)
		if err := rows.Scan(&r.Slot, &id, &tick, &r.Version, &r.Size, &savedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan save %s: %w: %v", r.Slot, ErrCorrupt, err)
		}
		r.Tick = uint64(tick)
		r.SavedAt = time.Unix(0, savedAt).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete slot %s: %w", slot, ErrNoSave)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// corrupt zeroes the stored checksum. Test hook.
func (s *SQLiteStore) corrupt(ctx context.Context, slot string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE saves SET checksum = zeroblob(32) WHERE slot = ?`, slot)
	return err
}
