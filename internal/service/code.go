package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeSpace is the number of possible attendance codes (000000–999999).
var codeSpace = big.NewInt(1000000)

// GenerateCode returns a 6-digit attendance code drawn uniformly from
// 000000–999999, leading zeros kept. Uniqueness is not guaranteed here;
// the store's constraint catches collisions and the issuance service
// regenerates.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// joinCodeAlphabet avoids characters that read ambiguously on screen.
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateJoinCode returns an 8-character class join code.
func GenerateJoinCode() (string, error) {
	buf := make([]byte, 8)
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}
		buf[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
