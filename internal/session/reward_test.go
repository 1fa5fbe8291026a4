package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/walletlink/internal/core/domain"
)

func newTestFetcher() (*RewardAddressFetcher, *sleepRecorder) {
	f := NewRewardAddressFetcher(DefaultRewardConfig)
	rec := &sleepRecorder{}
	f.sleep = rec.sleep
	return f, rec
}

func TestFetch_SucceedsFirstTry(t *testing.T) {
	f, rec := newTestFetcher()
	handle := newFakeCapability(0, addresses("stake_test1uq"))

	res, err := f.Fetch(context.Background(), handle, nil)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(res.Addresses) != 1 || res.Addresses[0] != "stake_test1uq" {
		t.Errorf("unexpected addresses %v", res.Addresses)
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("expected no waits, got %v", rec.recorded())
	}
}

func TestFetch_RecoversFromAccountChangedWithoutReEnable(t *testing.T) {
	f, rec := newTestFetcher()
	handle := newFakeCapability(0, accountChanged(), accountChanged(), addresses("stake1abc"))

	reEnables := 0
	reEnable := func(ctx context.Context) (domain.Capability, error) {
		reEnables++
		return handle, nil
	}

	res, err := f.Fetch(context.Background(), handle, reEnable)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if reEnables != 0 {
		t.Errorf("expected no re-enable, got %d", reEnables)
	}
	if res.ReEnabled {
		t.Error("expected ReEnabled to be false")
	}
	if res.Addresses[0] != "stake1abc" {
		t.Errorf("expected stake1abc, got %v", res.Addresses)
	}
	if handle.calls() != 3 {
		t.Errorf("expected 3 queries, got %d", handle.calls())
	}

	waits := rec.recorded()
	want := []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}
	if len(waits) != len(want) || waits[0] != want[0] || waits[1] != want[1] {
		t.Errorf("waits = %v, want %v", waits, want)
	}
}

func TestFetch_ReEnablesOnceAfterBudgetExhausted(t *testing.T) {
	tests := []struct {
		name      string
		fresh     *fakeCapability
		wantErr   bool
		wantAddrs []string
	}{
		{
			name:      "fresh handle succeeds",
			fresh:     newFakeCapability(0, addresses("stake1fresh")),
			wantAddrs: []string{"stake1fresh"},
		},
		{
			name:    "fresh handle still fails",
			fresh:   newFakeCapability(0, accountChanged()),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, rec := newTestFetcher()
			handle := newFakeCapability(0, accountChanged())

			reEnables := 0
			reEnable := func(ctx context.Context) (domain.Capability, error) {
				reEnables++
				return tt.fresh, nil
			}

			res, err := f.Fetch(context.Background(), handle, reEnable)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Fetch error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !IsAccountChanged(err) {
				t.Errorf("expected the final account changed error as-is, got %v", err)
			}
			if reEnables != 1 {
				t.Errorf("expected exactly 1 re-enable, got %d", reEnables)
			}
			if handle.calls() != 3 {
				t.Errorf("expected 3 queries on original handle, got %d", handle.calls())
			}
			if tt.fresh.calls() != 1 {
				t.Errorf("expected exactly 1 query on fresh handle, got %d", tt.fresh.calls())
			}
			if !res.ReEnabled || res.Capability != tt.fresh {
				t.Error("expected result to carry the fresh handle")
			}
			if !tt.wantErr && res.Addresses[0] != tt.wantAddrs[0] {
				t.Errorf("addresses = %v, want %v", res.Addresses, tt.wantAddrs)
			}

			waits := rec.recorded()
			want := []time.Duration{500 * time.Millisecond, 500 * time.Millisecond, 200 * time.Millisecond}
			if len(waits) != len(want) {
				t.Fatalf("waits = %v, want %v", waits, want)
			}
			for i := range want {
				if waits[i] != want[i] {
					t.Errorf("wait[%d] = %v, want %v", i, waits[i], want[i])
				}
			}
		})
	}
}

func TestFetch_UnrelatedErrorPropagatesImmediately(t *testing.T) {
	f, rec := newTestFetcher()
	boom := errors.New("internal wallet error")
	handle := newFakeCapability(0, rewardReply{err: boom})

	reEnables := 0
	_, err := f.Fetch(context.Background(), handle, func(ctx context.Context) (domain.Capability, error) {
		reEnables++
		return handle, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if handle.calls() != 1 {
		t.Errorf("expected 1 query, got %d", handle.calls())
	}
	if reEnables != 0 {
		t.Errorf("expected no re-enable, got %d", reEnables)
	}
	if len(rec.recorded()) != 0 {
		t.Errorf("expected no waits, got %v", rec.recorded())
	}
}

func TestFetch_ReEnableFailurePropagates(t *testing.T) {
	f, _ := newTestFetcher()
	handle := newFakeCapability(0, accountChanged())
	declined := errors.New("user declined")

	_, err := f.Fetch(context.Background(), handle, func(ctx context.Context) (domain.Capability, error) {
		return nil, declined
	})
	if !errors.Is(err, declined) {
		t.Errorf("expected %v, got %v", declined, err)
	}
}

func TestFetch_CanceledDuringBackoff(t *testing.T) {
	f := NewRewardAddressFetcher(DefaultRewardConfig)
	handle := newFakeCapability(0, accountChanged())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, handle, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if handle.calls() != 1 {
		t.Errorf("expected 1 query before cancellation, got %d", handle.calls())
	}
}

func TestIsAccountChanged(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("Account changed"), true},
		{errors.New("error: ACCOUNT CHANGED, retry"), true},
		{errors.New("account missing"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsAccountChanged(tt.err); got != tt.want {
			t.Errorf("IsAccountChanged(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
