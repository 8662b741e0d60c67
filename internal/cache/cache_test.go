package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key("quote", "PETR4", map[string]string{"range": "3mo", "interval": "1d"})
	b := Key("quote", "PETR4", map[string]string{"interval": "1d", "range": "3mo"})
	if a != b {
		t.Errorf("param order changed the key: %q vs %q", a, b)
	}
}

func TestKey_DistinguishesInputs(t *testing.T) {
	base := Key("quote", "PETR4", map[string]string{"range": "3mo"})

	tests := []struct {
		name string
		key  string
	}{
		{"different prefix", Key("crypto", "PETR4", map[string]string{"range": "3mo"})},
		{"different subject", Key("quote", "VALE3", map[string]string{"range": "3mo"})},
		{"different params", Key("quote", "PETR4", map[string]string{"range": "1y"})},
		{"no params", Key("quote", "PETR4", nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key == base {
				t.Errorf("key collision with %q", base)
			}
		})
	}
}

func TestKey_Shape(t *testing.T) {
	key := Key("quote", "PETR4", map[string]string{"range": "3mo"})
	want := len("quote:PETR4:") + 16
	if len(key) != want {
		t.Errorf("key %q has length %d, want %d", key, len(key), want)
	}

	noSubject := Key("macro", "", nil)
	if len(noSubject) != len("macro:")+16 {
		t.Errorf("key without subject = %q", noSubject)
	}
}

func TestGetOrFetch_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), nil)

	calls := 0
	fetch := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`{"results":[]}`), nil
	}

	payload, cached, err := c.GetOrFetch(ctx, "quote:PETR4:abc", time.Minute, fetch)
	if err != nil {
		t.Fatalf("first GetOrFetch: %v", err)
	}
	if cached {
		t.Error("first call should miss")
	}
	if string(payload) != `{"results":[]}` {
		t.Errorf("payload = %s", payload)
	}

	payload, cached, err = c.GetOrFetch(ctx, "quote:PETR4:abc", time.Minute, fetch)
	if err != nil {
		t.Fatalf("second GetOrFetch: %v", err)
	}
	if !cached {
		t.Error("second call should hit")
	}
	if string(payload) != `{"results":[]}` {
		t.Errorf("payload = %s", payload)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestGetOrFetch_FailedFetchNotCached(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(), nil)

	fetchErr := errors.New("upstream down")
	calls := 0
	fetch := func(context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, fetchErr
		}
		return []byte(`ok`), nil
	}

	if _, _, err := c.GetOrFetch(ctx, "k", time.Minute, fetch); !errors.Is(err, fetchErr) {
		t.Fatalf("err = %v, want fetch error passed through", err)
	}

	payload, cached, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if cached {
		t.Error("failure must not be cached, retry should go upstream")
	}
	if string(payload) != "ok" {
		t.Errorf("payload = %s", payload)
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 13, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "k", []byte("v"), 30*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, ok, _ := store.Get(ctx, "k"); !ok {
		t.Fatal("entry should be live before TTL")
	}

	now = now.Add(31 * time.Minute)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("entry should have expired")
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d after expiry, want 0", store.Len())
	}
}

func TestGetOrFetch_StoreErrorDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	c := New(failingStore{}, nil)

	payload, cached, err := c.GetOrFetch(ctx, "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if cached {
		t.Error("broken store must report a miss")
	}
	if string(payload) != "fresh" {
		t.Errorf("payload = %s", payload)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store unavailable")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store unavailable")
}

func (failingStore) Close() error { return nil }
