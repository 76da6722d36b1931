// Package registry holds the published token table of every chain.
//
// Tables are swapped in whole by Publish and never mutated, so readers
// always see either the previous or the next table of a chain and never
// wait on a refresh.
package registry

import (
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"

	"token-registry/internal/domain"
	"token-registry/internal/tokens"
)

// ErrNotConfigured is returned when a chain has no published table, or
// its table lacks the requested well-known token.
var ErrNotConfigured = errors.New("chain not configured")

// Reader is the query surface of the registry.
type Reader interface {
	TokenByID(chain domain.ChainID, id string) (domain.Token, bool)
	TokenByAddress(chain domain.ChainID, addr string) (domain.Token, bool)
	TokensByAddress(chain domain.ChainID) map[string]domain.Token
	TokensByID(chain domain.ChainID) map[string]domain.Token
	Snapshot() map[domain.ChainID]*tokens.Table
	Native(chain domain.ChainID) (domain.Token, error)
	WrappedNative(chain domain.ChainID) (domain.Token, error)
	WrappedIfNative(t domain.Token) (domain.Token, error)
	NativeIfWrapped(t domain.Token) (domain.Token, error)
}

// Registry maps each configured chain to its current table.
type Registry struct {
	chains []domain.ChainID
	tables map[domain.ChainID]*atomic.Pointer[tokens.Table]
}

// New creates an empty registry for chains.
func New(chains []domain.ChainID) *Registry {
	r := &Registry{tables: make(map[domain.ChainID]*atomic.Pointer[tokens.Table], len(chains))}
	for _, c := range chains {
		if _, ok := r.tables[c]; ok {
			continue
		}
		r.tables[c] = &atomic.Pointer[tokens.Table]{}
		r.chains = append(r.chains, c)
	}
	sort.Slice(r.chains, func(i, j int) bool { return r.chains[i] < r.chains[j] })
	return r
}

// Chains returns the configured chains, sorted.
func (r *Registry) Chains() []domain.ChainID {
	return append([]domain.ChainID(nil), r.chains...)
}

// Publish replaces the tables of the given chains. The whole batch is
// rejected, and nothing swapped, if it names an unconfigured chain or
// carries a nil table.
func (r *Registry) Publish(tables map[domain.ChainID]*tokens.Table) error {
	for c, t := range tables {
		if _, ok := r.tables[c]; !ok {
			return errors.Wrapf(ErrNotConfigured, "publish %s", c)
		}
		if t == nil {
			return errors.Errorf("publish %s: nil table", c)
		}
		if t.Chain() != c {
			return errors.Errorf("publish %s: table belongs to %s", c, t.Chain())
		}
	}
	for c, t := range tables {
		r.tables[c].Store(t)
	}
	return nil
}

// Published reports whether chain has a table.
func (r *Registry) Published(chain domain.ChainID) bool {
	return r.table(chain) != nil
}

func (r *Registry) table(chain domain.ChainID) *tokens.Table {
	p, ok := r.tables[chain]
	if !ok {
		return nil
	}
	return p.Load()
}

// TokenByID resolves a record by chain and logical id.
func (r *Registry) TokenByID(chain domain.ChainID, id string) (domain.Token, bool) {
	t := r.table(chain)
	if t == nil {
		return domain.Token{}, false
	}
	return t.ByID(id)
}

// TokenByAddress resolves a record by chain and address, ignoring case.
func (r *Registry) TokenByAddress(chain domain.ChainID, addr string) (domain.Token, bool) {
	t := r.table(chain)
	if t == nil {
		return domain.Token{}, false
	}
	return t.ByAddress(addr)
}

// TokensByAddress returns the records of a chain keyed by lower-cased
// address, or nil if the chain is not published.
func (r *Registry) TokensByAddress(chain domain.ChainID) map[string]domain.Token {
	t := r.table(chain)
	if t == nil {
		return nil
	}
	return t.AllByAddress()
}

// TokensByID returns the records of a chain keyed by logical id, or nil
// if the chain is not published.
func (r *Registry) TokensByID(chain domain.ChainID) map[string]domain.Token {
	t := r.table(chain)
	if t == nil {
		return nil
	}
	return t.AllByID()
}

// Snapshot returns the current table of every published chain. Tables
// are immutable and safe to share.
func (r *Registry) Snapshot() map[domain.ChainID]*tokens.Table {
	out := make(map[domain.ChainID]*tokens.Table, len(r.tables))
	for c, p := range r.tables {
		if t := p.Load(); t != nil {
			out[c] = t
		}
	}
	return out
}

// Native returns the native token of chain.
func (r *Registry) Native(chain domain.ChainID) (domain.Token, error) {
	return r.wellKnown(chain, domain.NativeID, domain.KindNative)
}

// WrappedNative returns the wrapped native token of chain.
func (r *Registry) WrappedNative(chain domain.ChainID) (domain.Token, error) {
	return r.wellKnown(chain, domain.WrappedNativeID, domain.KindERC20)
}

func (r *Registry) wellKnown(chain domain.ChainID, id string, kind domain.TokenKind) (domain.Token, error) {
	t := r.table(chain)
	if t == nil {
		return domain.Token{}, errors.Wrapf(ErrNotConfigured, "chain %s has no tokens", chain)
	}
	tok, ok := t.ByID(id)
	if !ok || tok.Kind != kind {
		return domain.Token{}, errors.Wrapf(ErrNotConfigured, "chain %s has no %s token", chain, id)
	}
	return tok, nil
}

// WrappedIfNative maps a native token to the wrapped native token of its
// chain. Other tokens are returned unchanged.
func (r *Registry) WrappedIfNative(t domain.Token) (domain.Token, error) {
	switch t.Kind {
	case domain.KindNative:
		return r.WrappedNative(t.ChainID)
	case domain.KindERC20:
		return t, nil
	default:
		return domain.Token{}, errors.Errorf("token %s: unknown kind %q", t.ID, t.Kind)
	}
}

// NativeIfWrapped maps the wrapped native token of a chain to its native
// token. Other tokens are returned unchanged.
func (r *Registry) NativeIfWrapped(t domain.Token) (domain.Token, error) {
	switch t.Kind {
	case domain.KindNative:
		return t, nil
	case domain.KindERC20:
		wrapped, err := r.WrappedNative(t.ChainID)
		if err != nil {
			return domain.Token{}, err
		}
		if !domain.TokensEqual(t, wrapped) {
			return t, nil
		}
		return r.Native(t.ChainID)
	default:
		return domain.Token{}, errors.Errorf("token %s: unknown kind %q", t.ID, t.Kind)
	}
}

var _ Reader = (*Registry)(nil)
