// Package address normalizes EVM contract addresses.
package address

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses.
var ErrInvalidAddress = errors.New("invalid address")

// Checksum returns the EIP-55 checksummed form of raw.
func Checksum(raw string) (string, error) {
	a := strings.TrimSpace(raw)
	if !strings.HasPrefix(a, "0x") && !strings.HasPrefix(a, "0X") {
		a = "0x" + a
	}
	if !common.IsHexAddress(a) {
		return "", errors.Wrapf(ErrInvalidAddress, "%q", raw)
	}
	return common.HexToAddress(a).Hex(), nil
}

// Key returns the case-insensitive map key for an address.
func Key(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
