// Package shared holds helpers used across the HashLinks SDK: network
// normalization, Hedera client construction, private key parsing, operator
// credentials from the environment, and logger construction.
//
// # Environment Variables
//
// OperatorConfigFromEnv reads HEDERA_ACCOUNT_ID and HEDERA_PRIVATE_KEY (and
// their OPERATOR_* and network-scoped variants such as
// TESTNET_HEDERA_ACCOUNT_ID) after loading the nearest .env file. Variables
// already present in the environment are never overridden.
//
// NewLogger reads HCS_LOG_LEVEL when no level is given and HCS_LOG_FORMAT=json
// to switch from console to JSON output.
package shared
