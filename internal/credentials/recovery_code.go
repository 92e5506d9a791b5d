package credentials

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	codeMin  = 100000
	codeSpan = 900000 // codes fall in [100000, 999999]
)

// GenerateRecoveryCode returns a uniformly random 6 digit code
func GenerateRecoveryCode() (string, error) {
	return generateRecoveryCode(rand.Reader)
}

func generateRecoveryCode(r io.Reader) (string, error) {
	num, err := rand.Int(r, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate recovery code: %w", err)
	}
	return fmt.Sprintf("%06d", codeMin+num.Int64()), nil
}
