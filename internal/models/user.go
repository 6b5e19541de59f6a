package models

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID            int64
	FirstName     string
	LastName      string
	Username      string
	WalletAddress string
	Connected     bool
	CreatedAt     time.Time
}

func (u *User) DisplayName() string {
	var parts []string
	if u.FirstName != "" {
		parts = append(parts, u.FirstName)
	}
	if u.LastName != "" {
		parts = append(parts, u.LastName)
	}
	if u.Username != "" {
		parts = append(parts, fmt.Sprintf("@%s", u.Username))
	}
	parts = append(parts, fmt.Sprintf("[%d]", u.ID))
	return strings.Join(parts, " ")
}

// HasSession reports whether the user has a linked wallet that is currently connected.
func (u *User) HasSession() bool {
	return u.Connected && u.WalletAddress != ""
}

// ShortenAddress keeps the first and last chars characters of an address.
func ShortenAddress(address string, chars int) string {
	if address == "" {
		return ""
	}
	if chars <= 0 || len(address) <= 2*chars {
		return address
	}
	return address[:chars] + "..." + address[len(address)-chars:]
}
