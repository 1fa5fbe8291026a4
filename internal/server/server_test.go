package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
	"github.com/vietddude/walletlink/internal/infra/registry"
	"github.com/vietddude/walletlink/internal/infra/storage/memory"
	"github.com/vietddude/walletlink/internal/session"
)

type stubWallet struct {
	name      string
	networkID int
}

func (w stubWallet) Name() string       { return w.name }
func (w stubWallet) Icon() string       { return "" }
func (w stubWallet) APIVersion() string { return "0.1.0" }

func (w stubWallet) IsEnabled(ctx context.Context) (bool, error) { return true, nil }

func (w stubWallet) Enable(ctx context.Context) (domain.Capability, error) {
	return stubCapability{networkID: w.networkID}, nil
}

type stubCapability struct {
	networkID int
}

var errStub = errors.New("stub")

func (c stubCapability) GetNetworkID(ctx context.Context) (int, error) { return c.networkID, nil }
func (c stubCapability) GetRewardAddresses(ctx context.Context) ([]string, error) {
	return []string{"stake_test1uqstub"}, nil
}
func (c stubCapability) GetChangeAddress(ctx context.Context) (string, error)     { return "", errStub }
func (c stubCapability) GetUsedAddresses(ctx context.Context) ([]string, error)   { return nil, errStub }
func (c stubCapability) GetUnusedAddresses(ctx context.Context) ([]string, error) { return nil, errStub }
func (c stubCapability) GetUtxos(ctx context.Context) ([]string, error)           { return nil, errStub }
func (c stubCapability) GetBalance(ctx context.Context) (string, error)           { return "", errStub }
func (c stubCapability) SignTx(ctx context.Context, tx string, partial bool) (string, error) {
	return "", errStub
}
func (c stubCapability) SignData(ctx context.Context, addr, payload string) (domain.DataSignature, error) {
	return domain.DataSignature{}, errStub
}
func (c stubCapability) SubmitTx(ctx context.Context, tx string) (string, error) { return "", errStub }

func newTestServer(t *testing.T, checks map[string]Check) (*httptest.Server, *session.Manager) {
	t.Helper()
	reg := registry.NewStatic(stubWallet{name: "eternl", networkID: 0}, stubWallet{name: "flint", networkID: 1})
	n := session.NewNegotiator(reg, session.NegotiatorConfig{
		Network:     domain.NetworkTestnet,
		SettleDelay: time.Millisecond,
	})
	m := session.NewManager(session.Config{Providers: []string{"eternl", "flint", "nami"}}, n, nil, session.Callbacks{
		ShowError: func(string) {},
	})

	attempts := memory.NewAttemptRepo(memory.NewMemoryStorage())
	m.OnOutcome(func(out session.Outcome) {
		a := out.Attempt()
		_ = attempts.Save(context.Background(), &a)
	})

	srv := httptest.NewServer(NewServer(m, attempts, 0, checks).Handler())
	t.Cleanup(srv.Close)
	return srv, m
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return resp, out
}

func TestServer_SelectAndDisconnect(t *testing.T) {
	srv, m := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/session/select", `{"provider":"eternl"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	view := body["session"].(map[string]any)
	if view["description"] != session.StateDescription(domain.SessionConnected) {
		t.Errorf("unexpected description %v", view["description"])
	}
	if view["stake_address"] != "stake_test1uqstub" || view["connected"] != true {
		t.Errorf("unexpected session view %v", view)
	}
	if !m.IsConnected() {
		t.Error("expected manager to be connected")
	}

	resp, body = postJSON(t, srv.URL+"/session/select", `{"provider":"flint"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 while connected, got %d: %v", resp.StatusCode, body)
	}

	resp, body = postJSON(t, srv.URL+"/session/disconnect", `{}`)
	if resp.StatusCode != http.StatusOK || body["status"] != "disconnected" {
		t.Errorf("unexpected disconnect response %d %v", resp.StatusCode, body)
	}
}

func TestServer_SelectFailureReportsCategory(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, body := postJSON(t, srv.URL+"/session/select", `{"provider":"flint"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if body["category"] != string(domain.CategoryWrongNetwork) {
		t.Errorf("unexpected category %v", body["category"])
	}
	view := body["session"].(map[string]any)
	if !strings.Contains(view["last_error"].(string), "Testnet") {
		t.Errorf("unexpected last error %v", view["last_error"])
	}

	resp, _ = postJSON(t, srv.URL+"/session/select", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing provider, got %d", resp.StatusCode)
	}
}

func TestServer_ProvidersAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, map[string]Check{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	})

	postJSON(t, srv.URL+"/session/select", `{"provider":"flint"}`)
	postJSON(t, srv.URL+"/session/select", `{"provider":"eternl"}`)

	resp, err := http.Get(srv.URL + "/providers")
	if err != nil {
		t.Fatalf("GET /providers failed: %v", err)
	}
	var offers []ProviderView
	if err := json.NewDecoder(resp.Body).Decode(&offers); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	resp.Body.Close()
	if len(offers) != 3 || !offers[0].Installed || offers[2].Installed {
		t.Errorf("unexpected offers %+v", offers)
	}
	if offers[0].Connected != 1 || offers[0].Failed != 0 {
		t.Errorf("unexpected eternl counts %+v", offers[0])
	}
	if offers[1].Connected != 0 || offers[1].Failed != 1 {
		t.Errorf("unexpected flint counts %+v", offers[1])
	}

	resp, err = http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	var health map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	resp.Body.Close()
	if health["status"] != string(StatusDegraded) {
		t.Errorf("expected degraded, got %v", health["status"])
	}
	if health["session_state"] != session.StateDescription(domain.SessionConnected) {
		t.Errorf("unexpected session state %v", health["session_state"])
	}
}

func TestServer_SelectorToggle(t *testing.T) {
	srv, m := newTestServer(t, nil)

	postJSON(t, srv.URL+"/session/open", `{}`)
	if m.State().Status != domain.SessionListOpen {
		t.Fatalf("expected list_open, got %s", m.State().Status)
	}
	postJSON(t, srv.URL+"/session/close", `{}`)
	if m.State().Status != domain.SessionDisconnected {
		t.Errorf("expected disconnected, got %s", m.State().Status)
	}
}
