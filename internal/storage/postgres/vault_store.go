package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"token-registry/internal/domain"
	"token-registry/internal/storage"
)

// VaultStore implements storage.VaultStore using PostgreSQL.
// ReplaceChain raises ChannelVaultsUpdated on commit.
type VaultStore struct {
	pool *Pool
}

// NewVaultStore creates a new VaultStore.
func NewVaultStore(pool *Pool) *VaultStore {
	return &VaultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.VaultStore = (*VaultStore)(nil)

const vaultColumns = `
	id, chain, kind, token, token_address, token_decimals, token_bridge,
	oracle, oracle_id, earn_contract_address,
	earned_token, earned_token_address, earned_token_decimals
`

// ReplaceChain atomically replaces all vaults of a chain.
func (s *VaultStore) ReplaceChain(ctx context.Context, chain domain.ChainID, vaults []*domain.Vault) (err error) {
	defer func(start time.Time) { observe("replace_vaults", start, err) }(time.Now())

	if err := storage.ValidateVaults(chain, vaults); err != nil {
		return err
	}

	ids := make([]string, 0, len(vaults))
	batch := &pgx.Batch{}
	for _, v := range vaults {
		ids = append(ids, v.ID)
		batch.Queue(`INSERT INTO vaults (`+vaultColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			v.ID,
			string(v.ChainID),
			string(v.Kind),
			v.Token,
			v.TokenAddress,
			v.TokenDecimals,
			string(v.TokenBridge),
			string(v.Oracle),
			v.OracleID,
			v.EarnContractAddress,
			v.EarnedToken,
			v.EarnedTokenAddress,
			v.EarnedTokenDecimals,
		)
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM vaults WHERE chain = $1 OR id = ANY($2)`, string(chain), ids); err != nil {
			return errors.Wrap(err, "delete vaults")
		}
		if err := execBatch(ctx, tx, batch, len(vaults)); err != nil {
			return err
		}
		return notify(ctx, tx, ChannelVaultsUpdated, string(chain))
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return errors.Wrapf(err, "replace vaults of %s", chain)
	}
	return nil
}

// GetByID retrieves a vault by its ID. Returns ErrNotFound if not exists.
func (s *VaultStore) GetByID(ctx context.Context, id string) (*domain.Vault, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE id = $1`, id)
	v, err := scanVault(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "get vault by id")
	}
	return v, nil
}

// GetByChain retrieves all vaults of a chain, ordered by id ASC.
func (s *VaultStore) GetByChain(ctx context.Context, chain domain.ChainID) (_ []*domain.Vault, err error) {
	defer func(start time.Time) { observe("vaults_by_chain", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE chain = $1 ORDER BY id ASC`, string(chain))
	if err != nil {
		return nil, errors.Wrap(err, "query vaults by chain")
	}
	defer rows.Close()

	return collectVaults(rows)
}

// GetAll retrieves the vaults of every chain, ordered by (chain, id) ASC.
func (s *VaultStore) GetAll(ctx context.Context) (_ []*domain.Vault, err error) {
	defer func(start time.Time) { observe("vaults_all", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `SELECT `+vaultColumns+` FROM vaults ORDER BY chain ASC, id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "query all vaults")
	}
	defer rows.Close()

	return collectVaults(rows)
}

func collectVaults(rows pgx.Rows) ([]*domain.Vault, error) {
	var result []*domain.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan vault")
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate vaults")
	}
	return result, nil
}

// scanVault scans a single row into a Vault.
func scanVault(row pgx.Row) (*domain.Vault, error) {
	var (
		v              domain.Vault
		chain, kind    string
		bridge, oracle string
	)
	err := row.Scan(
		&v.ID,
		&chain,
		&kind,
		&v.Token,
		&v.TokenAddress,
		&v.TokenDecimals,
		&bridge,
		&oracle,
		&v.OracleID,
		&v.EarnContractAddress,
		&v.EarnedToken,
		&v.EarnedTokenAddress,
		&v.EarnedTokenDecimals,
	)
	if err != nil {
		return nil, err
	}
	v.ChainID = domain.ChainID(chain)
	v.Kind = domain.VaultKind(kind)
	v.TokenBridge = domain.BridgeKind(bridge)
	v.Oracle = domain.PricingSource(oracle)
	return &v, nil
}
