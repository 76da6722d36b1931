package domain

// ChainID identifies one blockchain network the registry tracks
// independently (e.g. "eth", "bsc").
type ChainID string
