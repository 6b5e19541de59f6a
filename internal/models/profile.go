package models

import (
	"errors"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	avatarBaseURL   = "https://api.dicebear.com/6.x/avataaars/svg"
	avatarSeedChars = 8

	MaxUsernameLength = 32
)

var ErrInvalidUsername = errors.New("username must be 1-32 printable characters")

// AvatarURL returns the generated avatar for a wallet address. The seed is
// the address prefix, so the same wallet always gets the same picture.
func AvatarURL(identity string) string {
	seed := identity
	if len(seed) > avatarSeedChars {
		seed = seed[:avatarSeedChars]
	}
	return avatarBaseURL + "?seed=" + url.QueryEscape(seed)
}

// NormalizeUsername trims surrounding space and rejects empty, overlong or
// non-printable names.
func NormalizeUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxUsernameLength || !utf8.ValidString(name) {
		return "", ErrInvalidUsername
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return "", ErrInvalidUsername
		}
	}
	return name, nil
}
