package credential

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// TokenLength is the number of digits in a confirmation or reset code.
const TokenLength = 6

// GenerateToken returns a 6-digit numeric code (100000 to 999999).
func GenerateToken() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
