package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// Well-known logical ids and the address sentinel of the native asset.
const (
	NativeID        = "NATIVE"
	WrappedNativeID = "WNATIVE"
	NativeAddress   = "native"
)

// TokenKind tags which variant a Token is.
type TokenKind string

const (
	KindNative TokenKind = "native"
	KindERC20  TokenKind = "erc20"
)

// PricingSource names the pricing subsystem that values a token.
type PricingSource string

const (
	PricingTokens PricingSource = "tokens"
	PricingLPs    PricingSource = "lps"
)

// BridgeKind describes if/how a token is bridged. Empty means not bridged.
type BridgeKind string

// Token is one record of a chain token table.
//
// Native tokens carry NativeAddress as their address and are never staked.
// ERC20 tokens carry a checksummed contract address.
type Token struct {
	Kind     TokenKind     `json:"type"`
	ID       string        `json:"id"`
	Symbol   string        `json:"symbol"`
	Name     string        `json:"name"`
	ChainID  ChainID       `json:"chainId"`
	Oracle   PricingSource `json:"oracle"`
	OracleID string        `json:"oracleId"`
	Address  string        `json:"address"`
	Decimals int           `json:"decimals"`
	Bridge   BridgeKind    `json:"bridge,omitempty"`
	Staked   bool          `json:"staked,omitempty"`
}

// IsNative reports whether t is the Native variant.
func (t Token) IsNative() bool {
	return t.Kind == KindNative
}

// AddressKey is the case-insensitive form of the token address used as
// map key in chain token tables.
func (t Token) AddressKey() string {
	return strings.ToLower(t.Address)
}

// Validate checks the per-variant shape of the token.
func (t Token) Validate() error {
	if t.ID == "" {
		return errors.New("token id is empty")
	}
	if t.Decimals < 0 {
		return errors.Errorf("token %s: negative decimals %d", t.ID, t.Decimals)
	}

	switch t.Kind {
	case KindNative:
		if t.Address != NativeAddress {
			return errors.Errorf("native token %s: address must be %q, got %q", t.ID, NativeAddress, t.Address)
		}
		if t.Staked {
			return errors.Errorf("native token %s cannot be staked", t.ID)
		}
	case KindERC20:
		if !strings.HasPrefix(t.Address, "0x") || len(t.Address) != 42 {
			return errors.Errorf("erc20 token %s: malformed address %q", t.ID, t.Address)
		}
	default:
		return errors.Errorf("token %s: unknown kind %q", t.ID, t.Kind)
	}
	return nil
}

// TokensEqual reports whether a and b denote the same token: same chain,
// same address (case-insensitive) and same variant.
func TokensEqual(a, b Token) bool {
	return a.ChainID == b.ChainID &&
		a.Kind == b.Kind &&
		strings.EqualFold(a.Address, b.Address)
}
