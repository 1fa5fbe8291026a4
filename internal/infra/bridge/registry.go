package bridge

import (
	"github.com/vietddude/walletlink/internal/infra/registry"
)

// NewRegistry builds a registry of bridge wallets. Entries without a URL are
// skipped so that they surface as not installed.
func NewRegistry(wallets []WalletConfig) *registry.Static {
	r := registry.NewStatic()
	for _, cfg := range wallets {
		if cfg.URL == "" {
			continue
		}
		r.Register(NewWallet(cfg))
	}
	return r
}
