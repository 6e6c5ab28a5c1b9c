package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"testing"
	"time"

	"romsift/internal/catalog"
	"romsift/internal/credentials"
	"romsift/internal/retroachievements"
	"romsift/internal/services"
)

var validCreds = credentials.Static{Username: "alice", APIKey: "secret"}

func throttled() error {
	return &retroachievements.StatusError{Endpoint: "test", StatusCode: http.StatusTooManyRequests}
}

func md5Of(n int) string {
	return fmt.Sprintf("%032X", n)
}

type fakeAPI struct {
	pages    [][]retroachievements.GameListEntry
	listErrs []error
	parents  map[int64]int64
	hashes   map[int64][]retroachievements.Hash
	hashErrs map[int64][]error
	calls    []string
	offsets  []int
}

func (f *fakeAPI) GameList(_ context.Context, creds retroachievements.Credentials, opts retroachievements.ListOptions) ([]retroachievements.GameListEntry, error) {
	f.calls = append(f.calls, "list")
	if !creds.Complete() {
		return nil, errors.New("incomplete credentials")
	}
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.offsets = append(f.offsets, opts.Offset)
	page := opts.Offset / opts.Count
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

func (f *fakeAPI) GameExtended(_ context.Context, _ retroachievements.Credentials, id int64) (*retroachievements.GameExtended, error) {
	f.calls = append(f.calls, fmt.Sprintf("extended:%d", id))
	ext := &retroachievements.GameExtended{ID: id}
	if parent, ok := f.parents[id]; ok {
		ext.ParentGameID = &parent
	}
	raw, _ := json.Marshal(map[string]any{"ID": id, "ParentGameID": ext.ParentGameID})
	ext.Raw = raw
	return ext, nil
}

func (f *fakeAPI) GameHashes(_ context.Context, _ retroachievements.Credentials, id int64) ([]retroachievements.Hash, error) {
	f.calls = append(f.calls, fmt.Sprintf("hashes:%d", id))
	if errs := f.hashErrs[id]; len(errs) > 0 {
		err := errs[0]
		f.hashErrs[id] = errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.hashes[id], nil
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func newTestFetcher(api catalog.API, clock *fakeClock, opts ...catalog.Option) *catalog.Fetcher {
	base := []catalog.Option{catalog.WithSleeper(clock.Sleep), catalog.WithClock(clock.Now)}
	return catalog.NewFetcher(api, validCreds, append(base, opts...)...)
}

func game(id int64, title string) retroachievements.GameListEntry {
	return retroachievements.GameListEntry{ID: id, Title: title, ConsoleID: 2, ConsoleName: "Nintendo 64", NumAchievements: 10}
}

func collect(t *testing.T, f *catalog.Fetcher, pageSize int) ([]catalog.RawRecord, error) {
	t.Helper()
	var out []catalog.RawRecord
	for raw, err := range f.Fetch(context.Background(), pageSize) {
		if err != nil {
			return out, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func TestFetchPaginatesUntilShortPage(t *testing.T) {
	api := &fakeAPI{
		pages: [][]retroachievements.GameListEntry{
			{game(1, "A"), game(2, "B")},
			{game(3, "C")},
		},
		hashes: map[int64][]retroachievements.Hash{1: {{MD5: md5Of(1)}}},
	}
	f := newTestFetcher(api, newFakeClock(), catalog.WithPacing(0))
	records, err := collect(t, f, 2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if !slices.Equal(api.offsets, []int{0, 2}) {
		t.Fatalf("unexpected offsets %v", api.offsets)
	}
	if len(records[0].Hashes) != 1 || records[0].Info == nil {
		t.Fatalf("expected first record to carry details, got %+v", records[0])
	}
	stats := f.Stats()
	if stats.Pages != 2 || stats.Games != 3 || stats.Requests != 8 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestFetchFullPageRequestsAnotherPage(t *testing.T) {
	api := &fakeAPI{pages: [][]retroachievements.GameListEntry{{game(1, "A"), game(2, "B")}}}
	records, err := collect(t, newTestFetcher(api, newFakeClock(), catalog.WithPacing(0)), 2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 2 || !slices.Equal(api.offsets, []int{0, 2}) {
		t.Fatalf("expected empty second page to end retrieval, offsets %v", api.offsets)
	}
}

func TestFetchSkipsDetailsForMarkedTitles(t *testing.T) {
	api := &fakeAPI{pages: [][]retroachievements.GameListEntry{
		{game(1, "~Hack~ Mario"), game(2, "Zelda [Subset - Bonus]"), game(3, "Zelda")},
	}}
	records, err := collect(t, newTestFetcher(api, newFakeClock(), catalog.WithPacing(0)), 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected every listed game to be yielded, got %d", len(records))
	}
	if !records[0].DetailsSkipped() || !records[1].DetailsSkipped() || records[2].DetailsSkipped() {
		t.Fatalf("unexpected detail state: %v %v %v", records[0].DetailsSkipped(), records[1].DetailsSkipped(), records[2].DetailsSkipped())
	}
	want := []string{"list", "extended:3", "hashes:3"}
	if !slices.Equal(api.calls, want) {
		t.Fatalf("unexpected calls %v, want %v", api.calls, want)
	}
}

func TestFetchRetriesThrottledRequestOnSchedule(t *testing.T) {
	api := &fakeAPI{
		listErrs: []error{throttled(), throttled(), throttled()},
		pages:    [][]retroachievements.GameListEntry{{}},
	}
	clock := newFakeClock()
	records, err := collect(t, newTestFetcher(api, clock), 100)
	if err != nil {
		t.Fatalf("expected success after three retries, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	want := []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}
	if !slices.Equal(clock.sleeps, want) {
		t.Fatalf("unexpected sleeps %v, want %v", clock.sleeps, want)
	}
	if len(api.calls) != 4 {
		t.Fatalf("expected four attempts, got %d", len(api.calls))
	}
}

func TestFetchFailsWhenThrottlingPersists(t *testing.T) {
	api := &fakeAPI{
		listErrs: []error{throttled(), throttled(), throttled(), throttled()},
		pages:    [][]retroachievements.GameListEntry{{game(1, "A")}},
	}
	clock := newFakeClock()
	records, err := collect(t, newTestFetcher(api, clock), 100)
	if !errors.Is(err, services.ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit exceeded, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	if len(api.calls) != 4 {
		t.Fatalf("expected exactly four attempts, got %d", len(api.calls))
	}
	if !slices.Equal(clock.sleeps, []time.Duration{30 * time.Second, 60 * time.Second, 90 * time.Second}) {
		t.Fatalf("unexpected sleeps %v", clock.sleeps)
	}
}

func TestExhaustionMidPageYieldsNoIndex(t *testing.T) {
	api := &fakeAPI{
		pages:    [][]retroachievements.GameListEntry{{game(1, "A"), game(2, "B")}},
		hashes:   map[int64][]retroachievements.Hash{1: {{MD5: md5Of(1)}}},
		hashErrs: map[int64][]error{2: {throttled(), throttled(), throttled(), throttled()}},
	}
	f := newTestFetcher(api, newFakeClock())
	var captured []catalog.RawRecord
	index, _, err := catalog.Build(catalog.Capture(f.Fetch(context.Background(), 100), &captured))
	if !errors.Is(err, services.ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit exceeded, got %v", err)
	}
	if index != nil {
		t.Fatal("expected no index after exhausted retries")
	}
	if len(captured) != 0 {
		t.Fatalf("expected no records from the throttled page, got %d", len(captured))
	}

	api = &fakeAPI{
		pages:    [][]retroachievements.GameListEntry{{game(1, "A"), game(2, "B")}},
		hashErrs: map[int64][]error{2: {throttled(), throttled(), throttled(), throttled()}},
	}
	records, err := collect(t, newTestFetcher(api, newFakeClock()), 100)
	if !errors.Is(err, services.ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit exceeded, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected the error before any record, got %v", records)
	}
}

func TestFetchYieldsEarlierPagesBeforeFailure(t *testing.T) {
	api := &fakeAPI{
		pages:    [][]retroachievements.GameListEntry{{game(1, "A"), game(2, "B")}, {game(3, "C")}},
		hashErrs: map[int64][]error{3: {errors.New("boom")}},
	}
	records, err := collect(t, newTestFetcher(api, newFakeClock(), catalog.WithPacing(0)), 2)
	if err == nil {
		t.Fatal("expected the failure on the second page")
	}
	if len(records) != 2 || records[0].ID != 1 || records[1].ID != 2 {
		t.Fatalf("expected the complete first page, got %v", records)
	}
}

func TestFetchSkipsGameListedTwice(t *testing.T) {
	// The second page repeats game 2, as when the list shifts between requests.
	api := &fakeAPI{
		pages: [][]retroachievements.GameListEntry{{game(1, "A"), game(2, "B")}, {game(2, "B"), game(3, "C")}, {}},
		hashes: map[int64][]retroachievements.Hash{
			1: {{MD5: md5Of(1)}}, 2: {{MD5: md5Of(2)}}, 3: {{MD5: md5Of(3)}},
		},
	}
	f := newTestFetcher(api, newFakeClock(), catalog.WithPacing(0))
	index, stats, err := catalog.Build(f.Fetch(context.Background(), 2))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if index.Len() != 3 || stats.Retained != 3 {
		t.Fatalf("expected 3 games, got len=%d stats=%+v", index.Len(), stats)
	}
	extended := 0
	for _, call := range api.calls {
		if call == "extended:2" {
			extended++
		}
	}
	if extended != 1 {
		t.Fatalf("expected game 2 to be completed once, calls=%v", api.calls)
	}
}

func TestFetchPacesConsecutiveRequests(t *testing.T) {
	api := &fakeAPI{pages: [][]retroachievements.GameListEntry{{game(1, "A")}}}
	clock := newFakeClock()
	if _, err := collect(t, newTestFetcher(api, clock), 100); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}
	if !slices.Equal(clock.sleeps, want) {
		t.Fatalf("unexpected pacing sleeps %v, want %v", clock.sleeps, want)
	}
}

func TestFetchTerminalStatusesAreNotRetried(t *testing.T) {
	tests := []struct {
		status int
		marker error
	}{
		{http.StatusUnauthorized, services.ErrAuth},
		{http.StatusForbidden, services.ErrAuth},
		{http.StatusInternalServerError, services.ErrNetwork},
	}
	for _, tc := range tests {
		api := &fakeAPI{listErrs: []error{&retroachievements.StatusError{StatusCode: tc.status}}}
		clock := newFakeClock()
		_, err := collect(t, newTestFetcher(api, clock), 100)
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
		if len(api.calls) != 1 || len(clock.sleeps) != 0 {
			t.Fatalf("status %d: expected a single attempt without sleeping, calls=%v sleeps=%v", tc.status, api.calls, clock.sleeps)
		}
	}
}

func TestFetchRequiresCredentialsBeforeRequests(t *testing.T) {
	api := &fakeAPI{}
	f := catalog.NewFetcher(api, credentials.Static{Username: "alice"})
	_, err := collect(t, f, 100)
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("expected no requests, got %v", api.calls)
	}
}

func TestFetchSequenceIsNotRestartable(t *testing.T) {
	api := &fakeAPI{pages: [][]retroachievements.GameListEntry{{game(1, "A")}}}
	seq := newTestFetcher(api, newFakeClock(), catalog.WithPacing(0)).Fetch(context.Background(), 100)
	for _, err := range seq {
		if err != nil {
			t.Fatalf("first range: %v", err)
		}
	}
	var errs []error
	for _, err := range seq {
		errs = append(errs, err)
	}
	if len(errs) != 1 || !errors.Is(errs[0], services.ErrValidation) {
		t.Fatalf("expected a single error on second range, got %v", errs)
	}
}

func TestFetchStopsWhenConsumerBreaks(t *testing.T) {
	api := &fakeAPI{pages: [][]retroachievements.GameListEntry{{game(1, "A"), game(2, "B")}, {game(3, "C")}}}
	for _, err := range newTestFetcher(api, newFakeClock(), catalog.WithPacing(0)).Fetch(context.Background(), 2) {
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		break
	}
	if slices.Contains(api.calls, "extended:3") || len(api.offsets) != 1 {
		t.Fatalf("expected no requests after break, got %v", api.calls)
	}
}

func TestFetchCancelledDuringBackoff(t *testing.T) {
	api := &fakeAPI{listErrs: []error{throttled()}}
	ctx, cancel := context.WithCancel(context.Background())
	sleeper := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	f := catalog.NewFetcher(api, validCreds, catalog.WithSleeper(sleeper), catalog.WithPacing(0))
	var err error
	for _, e := range f.Fetch(ctx, 100) {
		err = e
	}
	if !errors.Is(err, services.ErrNetwork) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled network error, got %v", err)
	}
}
