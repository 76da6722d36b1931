package tokens

import (
	"github.com/pkg/errors"

	"token-registry/internal/domain"
)

// Builder merges candidate records into a Table.
//
// Records must be added in priority order. The first record seen for an
// id owns the id, and the first record seen for an address owns the
// address entry. A later record at the same address only contributes its
// bridge tag when the entry has none. ApplyCurated then lets curated
// records rename and reprice the entries they point at.
type Builder struct {
	chain     domain.ChainID
	byID      map[string]string
	byAddress map[string]domain.Token
	built     bool
}

// NewBuilder creates a builder for chain.
func NewBuilder(chain domain.ChainID) *Builder {
	return &Builder{
		chain:     chain,
		byID:      map[string]string{},
		byAddress: map[string]domain.Token{},
	}
}

// Add inserts records in order.
func (b *Builder) Add(records ...domain.Token) {
	for _, r := range records {
		key := r.AddressKey()
		if _, ok := b.byID[r.ID]; !ok {
			b.byID[r.ID] = key
		}

		existing, ok := b.byAddress[key]
		if !ok {
			b.byAddress[key] = r
			continue
		}
		if existing.Bridge == "" && r.Bridge != "" {
			existing.Bridge = r.Bridge
			b.byAddress[key] = existing
		}
	}
}

// ApplyCurated overwrites symbol and oracle id of the entries at the
// curated records' addresses. Addresses with no entry are ignored.
func (b *Builder) ApplyCurated(curated ...domain.Token) {
	for _, c := range curated {
		key := c.AddressKey()
		existing, ok := b.byAddress[key]
		if !ok {
			continue
		}
		existing.Symbol = c.Symbol
		existing.OracleID = c.OracleID
		b.byAddress[key] = existing
	}
}

// Build validates the merged records and returns the table. The builder
// must not be used afterwards.
func (b *Builder) Build() (*Table, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := b.validate(); err != nil {
		return nil, errors.Wrapf(err, "chain %s", b.chain)
	}
	b.built = true
	return &Table{chain: b.chain, byID: b.byID, byAddress: b.byAddress}, nil
}

func (b *Builder) validate() error {
	if err := b.expect(domain.NativeID, domain.KindNative, ErrMissingNative); err != nil {
		return err
	}
	return b.expect(domain.WrappedNativeID, domain.KindERC20, ErrMissingWrappedNative)
}

func (b *Builder) expect(id string, kind domain.TokenKind, missing error) error {
	key, ok := b.byID[id]
	if !ok {
		return missing
	}
	tok, ok := b.byAddress[key]
	if !ok {
		return missing
	}

	switch tok.Kind {
	case kind:
		return nil
	case domain.KindNative, domain.KindERC20:
		return errors.Wrapf(ErrInvariantViolation, "%s resolves to %s token %s, want %s", id, tok.Kind, tok.ID, kind)
	default:
		return errors.Wrapf(ErrInvariantViolation, "%s resolves to unknown kind %q", id, tok.Kind)
	}
}
