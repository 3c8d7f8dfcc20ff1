package main

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khadijaf/securevault/pkg/strength"
)

// Character set constants
const (
	charsetLowercase = "abcdefghijklmnopqrstuvwxyz"
	charsetUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	charsetDigits    = "0123456789"
	charsetSymbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	minGenerateLength     = 8
	maxGenerateLength     = 256
	defaultGenerateLength = 20
)

// Generate command flags
var (
	generateLength      int
	generateNoSymbols   bool
	generateNoNumbers   bool
	generateNoUppercase bool
	generateNoLowercase bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&generateLength, "length", "l", defaultGenerateLength, "Password length (8-256)")
	generateCmd.Flags().BoolVar(&generateNoSymbols, "no-symbols", false, "Exclude symbols")
	generateCmd.Flags().BoolVar(&generateNoNumbers, "no-numbers", false, "Exclude numbers")
	generateCmd.Flags().BoolVar(&generateNoUppercase, "no-uppercase", false, "Exclude uppercase letters")
	generateCmd.Flags().BoolVar(&generateNoLowercase, "no-lowercase", false, "Exclude lowercase letters")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a secure random password",
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateLength < minGenerateLength {
			return fmt.Errorf("password length must be at least %d characters", minGenerateLength)
		}
		if generateLength > maxGenerateLength {
			return fmt.Errorf("password length must be at most %d characters", maxGenerateLength)
		}

		charset := buildCharset()
		password, err := generatePassword(charset, generateLength)
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}

		fmt.Println(password)
		fmt.Printf("Strength: %s\n", strength.Evaluate(password))
		return nil
	},
}

// buildCharset builds the character set from the exclusion flags.
// Excluding everything falls back to letters and digits.
func buildCharset() string {
	var charset strings.Builder

	if !generateNoLowercase {
		charset.WriteString(charsetLowercase)
	}
	if !generateNoUppercase {
		charset.WriteString(charsetUppercase)
	}
	if !generateNoNumbers {
		charset.WriteString(charsetDigits)
	}
	if !generateNoSymbols {
		charset.WriteString(charsetSymbols)
	}

	if charset.Len() == 0 {
		return charsetLowercase + charsetUppercase + charsetDigits
	}
	return charset.String()
}

// generatePassword draws each character from crypto/rand.
func generatePassword(charset string, length int) (string, error) {
	charsetLen := big.NewInt(int64(len(charset)))
	password := make([]byte, length)

	for i := 0; i < length; i++ {
		idx, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		password[i] = charset[idx.Int64()]
	}

	return string(password), nil
}
