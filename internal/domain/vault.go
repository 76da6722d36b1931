package domain

// VaultKind tags the flavour of a vault.
type VaultKind string

const (
	VaultKindStandard     VaultKind = "standard"
	VaultKindGov          VaultKind = "gov"
	VaultKindCowcentrated VaultKind = "cowcentrated"
)

// Vault is the subset of a vault listing the registry consumes.
type Vault struct {
	ID      string    `json:"id"`
	ChainID ChainID   `json:"chain"`
	Kind    VaultKind `json:"type"`

	// Deposit token. An empty or "native" address means the vault is
	// deposited into with the native asset.
	Token         string        `json:"token"`
	TokenAddress  string        `json:"tokenAddress"`
	TokenDecimals int           `json:"tokenDecimals"`
	TokenBridge   BridgeKind    `json:"tokenBridge,omitempty"`
	Oracle        PricingSource `json:"oracle,omitempty"`
	OracleID      string        `json:"oracleId,omitempty"`

	// Receipt (share) token of the vault.
	EarnContractAddress string `json:"earnContractAddress"`

	// Reward token.
	EarnedToken         string `json:"earnedToken"`
	EarnedTokenAddress  string `json:"earnedTokenAddress"`
	EarnedTokenDecimals int    `json:"earnedTokenDecimals,omitempty"`
}
