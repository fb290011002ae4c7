package shared

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
	"github.com/joho/godotenv"
)

type OperatorConfig struct {
	AccountID  string
	PrivateKey string
	Network    string
}

var dotenvLoadOnce sync.Once

// OperatorConfigFromEnv reads operator credentials from the environment, loading the nearest
// .env file first. Network-scoped variables such as TESTNET_HEDERA_ACCOUNT_ID take precedence.
func OperatorConfigFromEnv() (OperatorConfig, error) {
	LoadDotEnv()

	network := FirstNonEmptyEnv("HEDERA_NETWORK", "NETWORK")
	if network == "" {
		network = NetworkTestnet
	}

	accountID := FirstNonEmptyEnv("HEDERA_ACCOUNT_ID", "HEDERA_OPERATOR_ID", "ACCOUNT_ID")
	if accountID == "" {
		accountID = FirstNonEmptyEnv("OPERATOR_ID")
	}
	privateKey := FirstNonEmptyEnv("HEDERA_PRIVATE_KEY", "HEDERA_OPERATOR_KEY", "PRIVATE_KEY")
	if privateKey == "" {
		privateKey = FirstNonEmptyEnv("OPERATOR_KEY")
	}

	switch strings.ToLower(network) {
	case NetworkMainnet:
		if scopedAccount := FirstNonEmptyEnv(
			"MAINNET_HEDERA_ACCOUNT_ID",
			"MAINNET_HEDERA_OPERATOR_ID",
			"MAINNET_OPERATOR_ID",
		); scopedAccount != "" {
			accountID = scopedAccount
		}
		if scopedKey := FirstNonEmptyEnv(
			"MAINNET_HEDERA_PRIVATE_KEY",
			"MAINNET_HEDERA_OPERATOR_KEY",
			"MAINNET_OPERATOR_KEY",
		); scopedKey != "" {
			privateKey = scopedKey
		}
	case NetworkTestnet:
		if scopedAccount := FirstNonEmptyEnv(
			"TESTNET_HEDERA_ACCOUNT_ID",
			"TESTNET_HEDERA_OPERATOR_ID",
			"TESTNET_OPERATOR_ID",
		); scopedAccount != "" {
			accountID = scopedAccount
		}
		if scopedKey := FirstNonEmptyEnv(
			"TESTNET_HEDERA_PRIVATE_KEY",
			"TESTNET_HEDERA_OPERATOR_KEY",
			"TESTNET_OPERATOR_KEY",
		); scopedKey != "" {
			privateKey = scopedKey
		}
	}

	if accountID == "" {
		return OperatorConfig{}, fmt.Errorf("HEDERA_ACCOUNT_ID is required")
	}
	if privateKey == "" {
		return OperatorConfig{}, fmt.Errorf("HEDERA_PRIVATE_KEY is required")
	}

	return OperatorConfig{
		AccountID:  accountID,
		PrivateKey: privateKey,
		Network:    network,
	}, nil
}

// LoadDotEnv loads the nearest .env file once per process. Variables already set in the
// environment are kept.
func LoadDotEnv() {
	dotenvLoadOnce.Do(func() {
		if path := findDotEnvFile(); path != "" {
			loadDotEnvFile(path)
		}
	})
}

// findDotEnvFile walks from the working directory towards the root and returns the first
// .env file found.
func findDotEnvFile() string {
	current, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(current, ".env")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// loadDotEnvFile exports the variables defined in path without overriding variables that are
// already set. It reports whether the file defined any variable.
func loadDotEnvFile(path string) bool {
	values, err := godotenv.Read(path)
	if err != nil || len(values) == 0 {
		return false
	}
	return godotenv.Load(path) == nil
}

// FirstNonEmptyEnv returns the first of keys whose trimmed value is non-empty.
func FirstNonEmptyEnv(keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value
		}
	}
	return ""
}

// ParsePrivateKey accepts ED25519, ECDSA or DER encoded private keys.
func ParsePrivateKey(raw string) (hedera.PrivateKey, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return hedera.PrivateKey{}, fmt.Errorf("private key cannot be empty")
	}

	ed25519Key, edErr := hedera.PrivateKeyFromStringEd25519(candidate)
	if edErr == nil {
		return ed25519Key, nil
	}

	ecdsaKey, ecdsaErr := hedera.PrivateKeyFromStringECDSA(candidate)
	if ecdsaErr == nil {
		return ecdsaKey, nil
	}

	genericKey, genericErr := hedera.PrivateKeyFromString(candidate)
	if genericErr == nil {
		return genericKey, nil
	}

	return hedera.PrivateKey{}, fmt.Errorf(
		"failed to parse private key as ED25519 (%v), ECDSA (%v), or generic (%v)",
		edErr,
		ecdsaErr,
		genericErr,
	)
}
