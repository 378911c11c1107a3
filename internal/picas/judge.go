// internal/picas/judge.go
package picas

import (
	"github.com/jason-s-yu/duelhall/internal/game"
)

// Digits is the length of every secret and guess.
const Digits = 5

// ValidateNumber checks that s is exactly five distinct decimal digits.
func ValidateNumber(s string) error {
	if len(s) != Digits {
		return game.Invalidf("number must have exactly %d digits", Digits)
	}
	var seen [10]bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return game.Invalidf("number must contain only digits")
		}
		if seen[c-'0'] {
			return game.Invalidf("digit %c is repeated", c)
		}
		seen[c-'0'] = true
	}
	return nil
}

// Judge scores guess against secret. fijas counts digits in the right place;
// picas counts shared digits in the wrong place.
func Judge(secret, guess string) (picas, fijas int, err error) {
	if err := ValidateNumber(secret); err != nil {
		return 0, 0, err
	}
	if err := ValidateNumber(guess); err != nil {
		return 0, 0, err
	}
	var inSecret [10]bool
	for i := 0; i < Digits; i++ {
		inSecret[secret[i]-'0'] = true
	}
	shared := 0
	for i := 0; i < Digits; i++ {
		if guess[i] == secret[i] {
			fijas++
		}
		if inSecret[guess[i]-'0'] {
			shared++
		}
	}
	return shared - fijas, fijas, nil
}
