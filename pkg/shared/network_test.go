package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNetwork(t *testing.T) {
	cases := map[string]string{
		"mainnet":     NetworkMainnet,
		"Mainnet":     NetworkMainnet,
		"  mainnet  ": NetworkMainnet,
		"TESTNET":     NetworkTestnet,
		"testnet":     NetworkTestnet,
		"":            NetworkTestnet,
		"   ":         NetworkTestnet,
	}
	for input, want := range cases {
		got, err := NormalizeNetwork(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	_, err := NormalizeNetwork("previewnet")
	require.ErrorContains(t, err, "unsupported network")
}

func TestNewHederaClient(t *testing.T) {
	for _, network := range []string{NetworkMainnet, NetworkTestnet} {
		client, err := NewHederaClient(network)
		require.NoError(t, err, network)
		assert.NotNil(t, client)
	}

	_, err := NewHederaClient("badnet")
	require.Error(t, err)
}
