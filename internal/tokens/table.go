package tokens

import (
	"encoding/json"
	"strings"

	"token-registry/internal/domain"
)

// Table is the immutable token table of one chain. Records are indexed
// by lower-cased address; ids resolve through the address index.
type Table struct {
	chain     domain.ChainID
	byID      map[string]string
	byAddress map[string]domain.Token
}

// Chain returns the chain the table belongs to.
func (t *Table) Chain() domain.ChainID {
	return t.chain
}

// Len returns the number of distinct records.
func (t *Table) Len() int {
	return len(t.byAddress)
}

// ByID resolves a record by logical id.
func (t *Table) ByID(id string) (domain.Token, bool) {
	key, ok := t.byID[id]
	if !ok {
		return domain.Token{}, false
	}
	tok, ok := t.byAddress[key]
	return tok, ok
}

// ByAddress resolves a record by address, ignoring case.
func (t *Table) ByAddress(addr string) (domain.Token, bool) {
	tok, ok := t.byAddress[strings.ToLower(strings.TrimSpace(addr))]
	return tok, ok
}

// AllByAddress returns a copy of the address index.
func (t *Table) AllByAddress() map[string]domain.Token {
	out := make(map[string]domain.Token, len(t.byAddress))
	for k, v := range t.byAddress {
		out[k] = v
	}
	return out
}

// AllByID returns every id with its resolved record.
func (t *Table) AllByID() map[string]domain.Token {
	out := make(map[string]domain.Token, len(t.byID))
	for id, key := range t.byID {
		if tok, ok := t.byAddress[key]; ok {
			out[id] = tok
		}
	}
	return out
}

type tableJSON struct {
	Chain     domain.ChainID          `json:"chain"`
	ByID      map[string]string       `json:"byId"`
	ByAddress map[string]domain.Token `json:"byAddress"`
}

// MarshalJSON renders both indexes. Map keys are emitted sorted, so equal
// tables marshal to identical bytes.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(tableJSON{Chain: t.chain, ByID: t.byID, ByAddress: t.byAddress})
}
