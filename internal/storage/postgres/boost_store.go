package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"token-registry/internal/domain"
	"token-registry/internal/storage"
)

// BoostStore implements storage.BoostStore using PostgreSQL.
// Rewards are stored as a JSONB array. ReplaceChain raises
// ChannelBoostsUpdated on commit.
type BoostStore struct {
	pool *Pool
}

// NewBoostStore creates a new BoostStore.
func NewBoostStore(pool *Pool) *BoostStore {
	return &BoostStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BoostStore = (*BoostStore)(nil)

// ReplaceChain atomically replaces all boosts of a chain.
func (s *BoostStore) ReplaceChain(ctx context.Context, chain domain.ChainID, boosts []*domain.Boost) (err error) {
	defer func(start time.Time) { observe("replace_boosts", start, err) }(time.Now())

	if err := storage.ValidateBoosts(chain, boosts); err != nil {
		return err
	}

	ids := make([]string, 0, len(boosts))
	batch := &pgx.Batch{}
	for _, b := range boosts {
		rewards := b.Rewards
		if rewards == nil {
			rewards = []domain.Reward{}
		}
		raw, err := json.Marshal(rewards)
		if err != nil {
			return errors.Wrapf(err, "encode rewards of boost %s", b.ID)
		}
		ids = append(ids, b.ID)
		batch.Queue(`INSERT INTO boosts (id, chain, pool_id, status, rewards) VALUES ($1, $2, $3, $4, $5)`,
			b.ID, string(b.ChainID), b.PoolID, string(b.Status), raw)
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM boosts WHERE chain = $1 OR id = ANY($2)`, string(chain), ids); err != nil {
			return errors.Wrap(err, "delete boosts")
		}
		if err := execBatch(ctx, tx, batch, len(boosts)); err != nil {
			return err
		}
		return notify(ctx, tx, ChannelBoostsUpdated, string(chain))
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return errors.Wrapf(err, "replace boosts of %s", chain)
	}
	return nil
}

// GetByID retrieves a boost by its ID. Returns ErrNotFound if not exists.
func (s *BoostStore) GetByID(ctx context.Context, id string) (*domain.Boost, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, chain, pool_id, status, rewards FROM boosts WHERE id = $1`, id)
	b, err := scanBoost(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "get boost by id")
	}
	return b, nil
}

// GetActiveByChain retrieves the active boosts of a chain, ordered by id ASC.
func (s *BoostStore) GetActiveByChain(ctx context.Context, chain domain.ChainID) (_ []*domain.Boost, err error) {
	defer func(start time.Time) { observe("active_boosts_by_chain", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT id, chain, pool_id, status, rewards
		FROM boosts
		WHERE chain = $1 AND status = $2
		ORDER BY id ASC
	`, string(chain), string(domain.BoostStatusActive))
	if err != nil {
		return nil, errors.Wrap(err, "query active boosts")
	}
	defer rows.Close()

	var result []*domain.Boost
	for rows.Next() {
		b, err := scanBoost(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan boost")
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate boosts")
	}
	return result, nil
}

// scanBoost scans a single row into a Boost.
func scanBoost(row pgx.Row) (*domain.Boost, error) {
	var (
		b             domain.Boost
		chain, status string
		raw           []byte
	)
	if err := row.Scan(&b.ID, &chain, &b.PoolID, &status, &raw); err != nil {
		return nil, err
	}
	b.ChainID = domain.ChainID(chain)
	b.Status = domain.BoostStatus(status)
	if err := json.Unmarshal(raw, &b.Rewards); err != nil {
		return nil, errors.Wrapf(err, "decode rewards of boost %s", b.ID)
	}
	return &b, nil
}
