package domain

// BoostStatus is the lifecycle state of a boost.
type BoostStatus string

const (
	BoostStatusActive BoostStatus = "active"
	BoostStatusEOL    BoostStatus = "eol"
)

// RewardType tags what a boost pays out.
type RewardType string

const (
	RewardTypeToken  RewardType = "token"
	RewardTypePoints RewardType = "points"
)

// Boost is the subset of a boost listing the registry consumes.
type Boost struct {
	ID      string      `json:"id"`
	ChainID ChainID     `json:"chain"`
	PoolID  string      `json:"poolId"`
	Status  BoostStatus `json:"status"`
	Rewards []Reward    `json:"rewards"`
}

// Reward is one payout of a boost.
type Reward struct {
	Type     RewardType    `json:"type"`
	Address  string        `json:"address"`
	Symbol   string        `json:"symbol"`
	Decimals int           `json:"decimals"`
	Oracle   PricingSource `json:"oracle,omitempty"`
	OracleID string        `json:"oracleId,omitempty"`

	// ChainID overrides the boost chain when the reward lives elsewhere.
	ChainID ChainID `json:"chainId,omitempty"`
}

// Clone returns a deep copy of the boost.
func (b *Boost) Clone() *Boost {
	c := *b
	if b.Rewards != nil {
		c.Rewards = make([]Reward, len(b.Rewards))
		copy(c.Rewards, b.Rewards)
	}
	return &c
}
