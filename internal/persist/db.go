package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stellardominion/server/internal/config"
	"github.com/stellardominion/server/internal/world"
	"go.uber.org/zap"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{Pool: pool, log: log}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// PostgresStore keeps save slots in the saves table.
type PostgresStore struct {
	db *DB
}

func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, slot string, snap *world.Snapshot) (Record, error) {
	if err := validSlot(slot); err != nil {
		return Record{}, err
	}
	payload, sum, err := Encode(snap)
	if err != nil {
		return Record{}, err
	}
	rec := newRecord(slot, snap, len(payload))
	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO saves (slot, id, tick, version, payload, checksum, saved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (slot) DO UPDATE SET
		   id = EXCLUDED.id, tick = EXCLUDED.tick, version = EXCLUDED.version,
		   payload = EXCLUDED.payload, checksum = EXCLUDED.checksum, saved_at = EXCLUDED.saved_at`,
		slot, rec.ID, int64(rec.Tick), rec.Version, payload, sum[:], rec.SavedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("save slot %s: %w", slot, err)
	}
	return rec, nil
}

func (s *PostgresStore) Load(ctx context.Context, slot string) (*world.Snapshot, Record, error) {
	var (
		rec      = Record{Slot: slot}
		tick     int64
		payload  []byte
		checksum []byte
	)
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, tick, version, payload, checksum, saved_at FROM saves WHERE slot = $1`, slot,
	).Scan(&rec.ID, &tick, &rec.Version, &payload, &checksum, &rec.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, Record{}, fmt.Errorf("load slot %s: %w", slot, ErrNoSave)
	}
	if err != nil {
		return nil, Record{}, fmt.Errorf("load slot %s: %w", slot, err)
	}
	rec.Tick = uint64(tick)
	rec.Size = len(payload)
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

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT slot, id, tick, version, octet_length(payload), saved_at FROM saves ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			tick int64
		)
		if err := rows.Scan(&r.Slot, &r.ID, &tick, &r.Version, &r.Size, &r.SavedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, slot string) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM saves WHERE slot = $1`, slot)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete slot %s: %w", slot, ErrNoSave)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
