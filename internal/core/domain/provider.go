package domain

import "context"

// Provider is a wallet registered in the host environment under a name.
type Provider interface {
	Name() string
	Icon() string
	APIVersion() string

	// IsEnabled reports whether the user already approved this host.
	IsEnabled(ctx context.Context) (bool, error)

	// Enable asks the user for approval and returns a live capability handle.
	Enable(ctx context.Context) (Capability, error)
}

// Capability is the handle returned by Provider.Enable.
// Only GetNetworkID and GetRewardAddresses are used during negotiation; the rest
// are forwarded to the host untouched.
type Capability interface {
	GetNetworkID(ctx context.Context) (int, error)
	GetRewardAddresses(ctx context.Context) ([]string, error)
	GetChangeAddress(ctx context.Context) (string, error)
	GetUsedAddresses(ctx context.Context) ([]string, error)
	GetUnusedAddresses(ctx context.Context) ([]string, error)
	GetUtxos(ctx context.Context) ([]string, error)
	GetBalance(ctx context.Context) (string, error)
	SignTx(ctx context.Context, tx string, partial bool) (string, error)
	SignData(ctx context.Context, address, payload string) (DataSignature, error)
	SubmitTx(ctx context.Context, tx string) (string, error)
}

// DataSignature is the result of Capability.SignData.
type DataSignature struct {
	Signature string `json:"signature"`
	Key       string `json:"key"`
}

// Registry resolves provider names to injected providers.
type Registry interface {
	Lookup(name string) (Provider, bool)
	Names() []string
}
