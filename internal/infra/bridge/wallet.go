package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// Bridge method names, following the CIP-30 wallet API.
const (
	MethodIsEnabled          = "isEnabled"
	MethodEnable             = "enable"
	MethodGetNetworkID       = "getNetworkId"
	MethodGetRewardAddresses = "getRewardAddresses"
	MethodGetChangeAddress   = "getChangeAddress"
	MethodGetUsedAddresses   = "getUsedAddresses"
	MethodGetUnusedAddresses = "getUnusedAddresses"
	MethodGetUtxos           = "getUtxos"
	MethodGetBalance         = "getBalance"
	MethodSignTx             = "signTx"
	MethodSignData           = "signData"
	MethodSubmitTx           = "submitTx"
)

// WalletConfig describes one wallet reachable through a bridge.
type WalletConfig struct {
	Name       string
	URL        string
	Icon       string
	APIVersion string
	Timeout    time.Duration
}

// Wallet is a domain.Provider served by a bridge endpoint.
type Wallet struct {
	cfg    WalletConfig
	client *Client
}

// NewWallet creates a bridge-backed wallet provider.
func NewWallet(cfg WalletConfig) *Wallet {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "0.1.0"
	}
	return &Wallet{cfg: cfg, client: NewClient(cfg.URL, cfg.Timeout)}
}

func (w *Wallet) Name() string       { return w.cfg.Name }
func (w *Wallet) Icon() string       { return w.cfg.Icon }
func (w *Wallet) APIVersion() string { return w.cfg.APIVersion }

// Client exposes the underlying transport for health reporting.
func (w *Wallet) Client() *Client {
	return w.client
}

// Check fails once the bridge error rate marks the endpoint unavailable.
func (w *Wallet) Check(ctx context.Context) error {
	if h := w.client.GetHealth(); !h.Available {
		return fmt.Errorf("bridge %s unavailable: error rate %.2f", w.cfg.Name, h.ErrorRate)
	}
	return nil
}

func (w *Wallet) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	if err := w.client.Call(ctx, MethodIsEnabled, []any{w.cfg.Name}, &enabled); err != nil {
		return false, err
	}
	return enabled, nil
}

// Enable asks the bridge for user approval. The timeout is long because the
// bridge waits for the user to answer the wallet prompt.
func (w *Wallet) Enable(ctx context.Context) (domain.Capability, error) {
	var res struct {
		Session string `json:"session"`
	}
	if err := w.client.Call(ctx, MethodEnable, []any{w.cfg.Name}, &res); err != nil {
		return nil, err
	}
	if res.Session == "" {
		return nil, fmt.Errorf("bridge returned no session for %s", w.cfg.Name)
	}
	return &Handle{client: w.client, session: res.Session}, nil
}

// Handle is a capability bound to a bridge session token.
type Handle struct {
	client  *Client
	session string
}

// Session returns the bridge session token.
func (h *Handle) Session() string {
	return h.session
}

func (h *Handle) call(ctx context.Context, method string, out any, args ...any) error {
	params := append([]any{h.session}, args...)
	return h.client.Call(ctx, method, params, out)
}

func (h *Handle) GetNetworkID(ctx context.Context) (int, error) {
	var id int
	err := h.call(ctx, MethodGetNetworkID, &id)
	return id, err
}

func (h *Handle) GetRewardAddresses(ctx context.Context) ([]string, error) {
	var addrs []string
	err := h.call(ctx, MethodGetRewardAddresses, &addrs)
	return addrs, err
}

func (h *Handle) GetChangeAddress(ctx context.Context) (string, error) {
	var addr string
	err := h.call(ctx, MethodGetChangeAddress, &addr)
	return addr, err
}

func (h *Handle) GetUsedAddresses(ctx context.Context) ([]string, error) {
	var addrs []string
	err := h.call(ctx, MethodGetUsedAddresses, &addrs)
	return addrs, err
}

func (h *Handle) GetUnusedAddresses(ctx context.Context) ([]string, error) {
	var addrs []string
	err := h.call(ctx, MethodGetUnusedAddresses, &addrs)
	return addrs, err
}

func (h *Handle) GetUtxos(ctx context.Context) ([]string, error) {
	var utxos []string
	err := h.call(ctx, MethodGetUtxos, &utxos)
	return utxos, err
}

func (h *Handle) GetBalance(ctx context.Context) (string, error) {
	var balance string
	err := h.call(ctx, MethodGetBalance, &balance)
	return balance, err
}

func (h *Handle) SignTx(ctx context.Context, tx string, partial bool) (string, error) {
	var witness string
	err := h.call(ctx, MethodSignTx, &witness, tx, partial)
	return witness, err
}

func (h *Handle) SignData(ctx context.Context, address, payload string) (domain.DataSignature, error) {
	var sig domain.DataSignature
	err := h.call(ctx, MethodSignData, &sig, address, payload)
	return sig, err
}

func (h *Handle) SubmitTx(ctx context.Context, tx string) (string, error) {
	var hash string
	err := h.call(ctx, MethodSubmitTx, &hash, tx)
	return hash, err
}
