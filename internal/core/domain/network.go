package domain

import (
	"fmt"
	"strings"
)

// Network is the target network the host application expects the wallet to be on.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
)

// Network ids reported by wallet providers.
const (
	NetworkIDTestnet = 0
	NetworkIDMainnet = 1
)

// ExpectedID returns the network id a provider must report for this network.
func (n Network) ExpectedID() int {
	if n == NetworkMainnet {
		return NetworkIDMainnet
	}
	return NetworkIDTestnet
}

// Label returns the user-facing network name.
func (n Network) Label() string {
	if n == NetworkMainnet {
		return "Mainnet"
	}
	return "Testnet"
}

// ParseNetwork converts a config value into a Network.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "main":
		return NetworkMainnet, nil
	case "testnet", "test", "preprod", "preview":
		return NetworkTestnet, nil
	default:
		return "", fmt.Errorf("unknown network %q", s)
	}
}
