package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lcamargo/brmarket-data/internal/audit"
	"github.com/lcamargo/brmarket-data/internal/model"
	"github.com/lcamargo/brmarket-data/internal/upstream"
)

type pageKey struct {
	assetType string
	page      int
}

type fakeLister struct {
	pages      map[pageKey]*upstream.ListResponse
	pageErrs   map[pageKey][]error
	listCalls  []pageKey
	quoteCalls []string
	quotes     map[string]*upstream.QuoteResponse
	quoteErr   error
}

func (f *fakeLister) QuoteList(_ context.Context, opts upstream.ListOptions) (*upstream.ListResponse, error) {
	key := pageKey{opts.Type, opts.Page}
	f.listCalls = append(f.listCalls, key)

	if errs := f.pageErrs[key]; len(errs) > 0 {
		err := errs[0]
		f.pageErrs[key] = errs[1:]
		return nil, err
	}
	resp, ok := f.pages[key]
	if !ok {
		return &upstream.ListResponse{}, nil
	}
	return resp, nil
}

func (f *fakeLister) Quote(_ context.Context, tickers []string, _ upstream.QuoteOptions) (*upstream.QuoteResponse, error) {
	f.quoteCalls = append(f.quoteCalls, tickers...)
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	if resp, ok := f.quotes[tickers[0]]; ok {
		return resp, nil
	}
	return &upstream.QuoteResponse{}, nil
}

type fakeAssetStore struct {
	assets     map[string]model.Asset
	upserts    int
	getErrs    map[string]error
	upsertErrs map[string]error
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{assets: make(map[string]model.Asset)}
}

func (f *fakeAssetStore) GetAsset(_ context.Context, ticker string) (model.Asset, bool, error) {
	if err := f.getErrs[ticker]; err != nil {
		return model.Asset{}, false, err
	}
	a, ok := f.assets[ticker]
	return a, ok, nil
}

func (f *fakeAssetStore) UpsertAsset(_ context.Context, a model.Asset) (bool, error) {
	if err := f.upsertErrs[a.Ticker]; err != nil {
		return false, err
	}
	_, existed := f.assets[a.Ticker]
	f.assets[a.Ticker] = a
	f.upserts++
	return !existed, nil
}

func listPage(hasMore bool, entries ...string) *upstream.ListResponse {
	var resp upstream.ListResponse
	payload := fmt.Sprintf(`{"stocks":[%s],"hasNextPage":%v}`, joinJSON(entries), hasMore)
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		panic(err)
	}
	return &resp
}

func joinJSON(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func TestSync_WalksPagesInOrder(t *testing.T) {
	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			{"stock", 1}: listPage(true,
				`{"stock":"PETR4","name":"Petrobras PN","sector":"Energy","logoUrl":"https://x/p.png"}`,
				`{"stock":"VALE3","name":"Vale ON","sector":"Materials","logoUrl":"https://x/v.png"}`,
			),
			{"stock", 2}: listPage(false,
				`{"stock":"ITUB4","name":"Itau PN","sector":"Financials","logoUrl":"https://x/i.png"}`,
			),
		},
	}
	store := newFakeAssetStore()

	s := New(client, store, WithTypes([]string{"stock"}))
	stats, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	want := []pageKey{{"stock", 1}, {"stock", 2}}
	if len(client.listCalls) != 2 || client.listCalls[0] != want[0] || client.listCalls[1] != want[1] {
		t.Errorf("listCalls = %v, want strict page order %v", client.listCalls, want)
	}
	if stats.Pages != 2 || stats.Processed != 3 || stats.Inserted != 3 || stats.Updated != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if store.assets["PETR4"].Name != "Petrobras PN" {
		t.Errorf("PETR4 = %+v", store.assets["PETR4"])
	}
}

func TestSync_MergeNeverBlanksKnownFields(t *testing.T) {
	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			// Listing entry is sparse: no name, no sector.
			{"stock", 1}: listPage(false, `{"stock":"PETR4","logoUrl":"https://x/new.png"}`),
		},
	}
	store := newFakeAssetStore()
	store.assets["PETR4"] = model.Asset{
		Ticker:  "PETR4",
		Name:    "Petrobras PN",
		Type:    "stock",
		Sector:  "Energy",
		LogoURL: "https://x/old.png",
	}

	s := New(client, store, WithTypes([]string{"stock"}), WithSkipEnrichment(true))
	stats, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got := store.assets["PETR4"]
	if got.Name != "Petrobras PN" || got.Sector != "Energy" {
		t.Errorf("sparse listing erased known fields: %+v", got)
	}
	if got.LogoURL != "https://x/new.png" {
		t.Errorf("LogoURL = %q, fresh non-empty value should win", got.LogoURL)
	}
	if stats.Updated != 1 {
		t.Errorf("stats = %+v, want the refresh counted as update", stats)
	}
}

func TestSync_ThrottledPageRetriedInPlace(t *testing.T) {
	throttled := &upstream.APIError{StatusCode: 429, Message: "Too Many Requests"}
	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			{"stock", 1}: listPage(false, `{"stock":"PETR4","name":"Petrobras PN"}`),
		},
		pageErrs: map[pageKey][]error{
			{"stock", 1}: {throttled, throttled},
		},
	}
	store := newFakeAssetStore()

	s := New(client, store,
		WithTypes([]string{"stock"}),
		WithSkipEnrichment(true),
		WithThrottleWait(time.Millisecond),
	)
	stats, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if len(client.listCalls) != 3 {
		t.Errorf("listCalls = %d, want 2 throttled + 1 success", len(client.listCalls))
	}
	for _, call := range client.listCalls {
		if call != (pageKey{"stock", 1}) {
			t.Errorf("retried a different page: %v", call)
		}
	}
	if stats.Inserted != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSync_OtherErrorAbortsKeepingProgress(t *testing.T) {
	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			{"stock", 1}: listPage(true, `{"stock":"PETR4","name":"Petrobras PN"}`),
		},
		pageErrs: map[pageKey][]error{
			{"stock", 2}: {&upstream.APIError{StatusCode: 500, Message: "Internal Server Error"}},
		},
	}
	store := newFakeAssetStore()

	s := New(client, store, WithTypes([]string{"stock"}), WithSkipEnrichment(true))
	stats, err := s.Sync(context.Background())
	if err == nil {
		t.Fatal("expected abort on server error")
	}

	if _, ok := store.assets["PETR4"]; !ok {
		t.Error("progress from page 1 should be preserved")
	}
	if stats.Inserted != 1 || stats.Pages != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSync_EnrichesThinAssets(t *testing.T) {
	var enriched upstream.QuoteResponse
	if err := json.Unmarshal([]byte(`{"results":[{"symbol":"XPTO3","longName":"Xpto SA","sector":"Tech","logoUrl":"https://x/x.png"}]}`), &enriched); err != nil {
		t.Fatal(err)
	}

	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			{"stock", 1}: listPage(false, `"XPTO3"`),
		},
		quotes: map[string]*upstream.QuoteResponse{"XPTO3": &enriched},
	}
	store := newFakeAssetStore()

	s := New(client, store, WithTypes([]string{"stock"}))
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if len(client.quoteCalls) != 1 || client.quoteCalls[0] != "XPTO3" {
		t.Fatalf("quoteCalls = %v, want one detail lookup", client.quoteCalls)
	}
	got := store.assets["XPTO3"]
	if got.Name != "Xpto SA" || got.Sector != "Tech" || got.LogoURL != "https://x/x.png" {
		t.Errorf("enriched asset = %+v", got)
	}
}

func TestSync_EnrichmentFailureDoesNotAbort(t *testing.T) {
	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			{"stock", 1}: listPage(false, `"XPTO3"`, `"YOLO4"`),
		},
		quoteErr: errors.New("detail lookup down"),
	}
	store := newFakeAssetStore()

	s := New(client, store, WithTypes([]string{"stock"}))
	stats, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if stats.Errors != 2 {
		t.Errorf("Errors = %d, want one per failed enrichment", stats.Errors)
	}
	if stats.Inserted != 2 {
		t.Errorf("Inserted = %d, thin assets should still be stored", stats.Inserted)
	}
}

func TestSync_StoreFailureIsolatedToRecord(t *testing.T) {
	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			{"stock", 1}: listPage(false,
				`{"stock":"PETR4","name":"Petrobras PN","sector":"Energy","logoUrl":"https://x/p.png"}`,
				`{"stock":"VALE3","name":"Vale ON","sector":"Materials","logoUrl":"https://x/v.png"}`,
				`{"stock":"ITUB4","name":"Itau PN","sector":"Financials","logoUrl":"https://x/i.png"}`,
			),
		},
	}
	store := newFakeAssetStore()
	store.upsertErrs = map[string]error{"VALE3": errors.New("unique constraint violated")}

	s := New(client, store, WithTypes([]string{"stock"}), WithSkipEnrichment(true))
	stats, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v, one bad row must not abort the run", err)
	}

	if stats.Processed != 3 || stats.Inserted != 2 || stats.Errors != 1 {
		t.Errorf("stats = %+v, want the failure counted and the rest persisted", stats)
	}
	for _, ticker := range []string{"PETR4", "ITUB4"} {
		if _, ok := store.assets[ticker]; !ok {
			t.Errorf("%s missing, records after the failure must still be stored", ticker)
		}
	}
}

func TestSync_LoadFailureIsolatedToRecord(t *testing.T) {
	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			{"stock", 1}: listPage(false,
				`{"stock":"PETR4","name":"Petrobras PN","sector":"Energy","logoUrl":"https://x/p.png"}`,
				`{"stock":"VALE3","name":"Vale ON","sector":"Materials","logoUrl":"https://x/v.png"}`,
			),
		},
	}
	store := newFakeAssetStore()
	store.getErrs = map[string]error{"PETR4": errors.New("connection reset")}

	s := New(client, store, WithTypes([]string{"stock"}), WithSkipEnrichment(true))
	stats, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if stats.Errors != 1 || stats.Inserted != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if _, ok := store.assets["VALE3"]; !ok {
		t.Error("VALE3 missing, the walk must continue past a load failure")
	}
}

func TestSync_MirrorsFetchesToAuditSink(t *testing.T) {
	throttled := &upstream.APIError{StatusCode: 429, Message: "Too Many Requests"}
	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			{"stock", 1}: listPage(true, `{"stock":"PETR4","name":"Petrobras PN","sector":"Energy","logoUrl":"https://x/p.png"}`),
			{"stock", 2}: listPage(false, `"XPTO3"`),
		},
		pageErrs: map[pageKey][]error{
			{"stock", 2}: {throttled},
		},
	}
	store := newFakeAssetStore()
	sink := audit.NewMemory()

	s := New(client, store,
		WithTypes([]string{"stock"}),
		WithThrottleWait(time.Millisecond),
		WithAuditSink(sink),
	)
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	recs := sink.Records()
	// Page 1, throttled page 2, retried page 2, one enrichment lookup.
	if len(recs) != 4 {
		t.Fatalf("records = %d, want every attempt mirrored", len(recs))
	}
	for _, rec := range recs {
		if rec.RunID != recs[0].RunID {
			t.Errorf("run id differs across records of one run")
		}
	}
	if recs[0].Endpoint != "quote_list" || recs[0].StatusCode != 200 {
		t.Errorf("first record = %+v", recs[0])
	}
	var params map[string]string
	if err := json.Unmarshal(recs[0].Params, &params); err != nil {
		t.Fatalf("params: %v", err)
	}
	if params["type"] != "stock" || params["page"] != "1" {
		t.Errorf("params = %v", params)
	}
	if recs[1].StatusCode != 429 || recs[1].Error == "" {
		t.Errorf("throttled attempt = %+v, want status and error captured", recs[1])
	}
	if recs[2].StatusCode != 200 {
		t.Errorf("retried attempt = %+v", recs[2])
	}
	if recs[3].Endpoint != "quote" || recs[3].Tickers != "XPTO3" {
		t.Errorf("enrichment record = %+v", recs[3])
	}
}

func TestSync_SkipEnrichment(t *testing.T) {
	client := &fakeLister{
		pages: map[pageKey]*upstream.ListResponse{
			{"stock", 1}: listPage(false, `"XPTO3"`),
		},
	}
	store := newFakeAssetStore()

	s := New(client, store, WithTypes([]string{"stock"}), WithSkipEnrichment(true))
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(client.quoteCalls) != 0 {
		t.Errorf("quoteCalls = %v, want none", client.quoteCalls)
	}
}
