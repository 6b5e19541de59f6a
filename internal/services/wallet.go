package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const walletKeyLength = 32

var ErrInvalidWallet = errors.New("invalid wallet address")

// ValidateWalletAddress checks that address is a base58-encoded 32-byte
// public key and returns it trimmed.
func ValidateWalletAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidWallet)
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidWallet, err)
	}
	if len(decoded) != walletKeyLength {
		return "", fmt.Errorf("%w: decodes to %d bytes, want %d", ErrInvalidWallet, len(decoded), walletKeyLength)
	}
	return address, nil
}
