// Package addressbook holds the curated, hand-maintained token
// definitions per chain.
//
// The default book is embedded from data/<chain>.json. Each file declares
// the chain's native asset and a map of logical key to token definition;
// a usable chain book contains a WNATIVE entry.
package addressbook

import (
	"embed"
	"encoding/json"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"token-registry/internal/chain"
	"token-registry/internal/domain"
)

//go:embed data/*.json
var dataFS embed.FS

// NativeDef declares the native asset of a chain.
type NativeDef struct {
	Symbol   string `json:"symbol"`
	OracleID string `json:"oracleId"`
	Decimals int    `json:"decimals"`
}

// TokenDef is one curated token definition.
type TokenDef struct {
	Name     string               `json:"name"`
	Symbol   string               `json:"symbol"`
	Oracle   domain.PricingSource `json:"oracle,omitempty"`
	OracleID string               `json:"oracleId"`
	Address  string               `json:"address"`
	Decimals int                  `json:"decimals"`
	Bridge   domain.BridgeKind    `json:"bridge,omitempty"`
	Staked   bool                 `json:"staked,omitempty"`
}

// ChainBook is the curated dataset of one chain.
type ChainBook struct {
	Native NativeDef           `json:"native"`
	Tokens map[string]TokenDef `json:"tokens"`
}

// Keys returns the token keys of the book in sorted order.
func (cb *ChainBook) Keys() []string {
	keys := make([]string, 0, len(cb.Tokens))
	for k := range cb.Tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WrappedNative returns the WNATIVE definition, if any.
func (cb *ChainBook) WrappedNative() (TokenDef, bool) {
	def, ok := cb.Tokens[domain.WrappedNativeID]
	return def, ok
}

// Book maps chains to their curated datasets. It is read-only after
// construction.
type Book struct {
	chains map[domain.ChainID]*ChainBook
}

// New creates a book from already parsed chain datasets.
func New(chains map[domain.ChainID]*ChainBook) *Book {
	b := &Book{chains: make(map[domain.ChainID]*ChainBook, len(chains))}
	for id, cb := range chains {
		b.chains[id] = cb
	}
	return b
}

// Chain returns the dataset of a chain.
func (b *Book) Chain(id domain.ChainID) (*ChainBook, bool) {
	cb, ok := b.chains[id]
	return cb, ok
}

// Chains returns the chains that have a dataset, sorted.
func (b *Book) Chains() []domain.ChainID {
	res := make([]domain.ChainID, 0, len(b.chains))
	for id := range b.chains {
		res = append(res, id)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Default returns the embedded address book.
func Default() (*Book, error) {
	return Load(dataFS, "data")
}

// Load reads every <chain>.json file of dir in fsys.
func Load(fsys fs.FS, dir string) (*Book, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read address book dir %s", dir)
	}

	chains := map[domain.ChainID]*ChainBook{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := domain.ChainID(strings.TrimSuffix(entry.Name(), ".json"))
		if !chain.IsSupported(id) {
			return nil, errors.Wrapf(chain.ErrUnsupportedChain, "address book file %s", entry.Name())
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read address book %s", entry.Name())
		}
		var cb ChainBook
		if err := json.Unmarshal(data, &cb); err != nil {
			return nil, errors.Wrapf(err, "parse address book %s", entry.Name())
		}
		if cb.Tokens == nil {
			cb.Tokens = map[string]TokenDef{}
		}
		chains[id] = &cb
	}
	return &Book{chains: chains}, nil
}
