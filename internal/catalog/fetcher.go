package catalog

import (
	"context"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"romsift/internal/credentials"
	"romsift/internal/logging"
	"romsift/internal/retroachievements"
	"romsift/internal/services"
)

const (
	DefaultConsoleID = 2 // Nintendo 64
	DefaultPageSize  = 100
	DefaultPacing    = 500 * time.Millisecond
)

// API is the subset of the RetroAchievements client the fetcher uses.
type API interface {
	GameList(ctx context.Context, creds retroachievements.Credentials, opts retroachievements.ListOptions) ([]retroachievements.GameListEntry, error)
	GameExtended(ctx context.Context, creds retroachievements.Credentials, gameID int64) (*retroachievements.GameExtended, error)
	GameHashes(ctx context.Context, creds retroachievements.Credentials, gameID int64) ([]retroachievements.Hash, error)
}

// FetchStats counts the work done by one Fetch.
type FetchStats struct {
	Pages          int
	Games          int
	Requests       int
	DetailsSkipped int
}

// Fetcher retrieves the console catalog page by page.
type Fetcher struct {
	api                  API
	provider             credentials.Provider
	consoleID            int
	onlyWithAchievements bool
	pacing               time.Duration
	backoff              []time.Duration
	sleep                Sleeper
	now                  func() time.Time
	logger               *slog.Logger
	onPage               func(offset, count int)

	stats FetchStats
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConsole selects the console whose games are listed.
func WithConsole(id int) Option {
	return func(f *Fetcher) {
		if id > 0 {
			f.consoleID = id
		}
	}
}

// WithOnlyAchievements restricts the list to games with achievements.
func WithOnlyAchievements(only bool) Option {
	return func(f *Fetcher) { f.onlyWithAchievements = only }
}

// WithPacing sets the minimum interval between two requests. Zero disables pacing.
func WithPacing(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.pacing = d
		}
	}
}

// WithBackoff replaces the retry schedule for throttled requests.
func WithBackoff(schedule []time.Duration) Option {
	return func(f *Fetcher) {
		if schedule != nil {
			f.backoff = append([]time.Duration(nil), schedule...)
		}
	}
}

// WithSleeper replaces the sleep used for pacing and backoff.
func WithSleeper(s Sleeper) Option {
	return func(f *Fetcher) {
		if s != nil {
			f.sleep = s
		}
	}
}

// WithClock replaces the clock used for pacing reservations.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logging.NewComponentLogger(logger, "fetcher")
	}
}

// WithPageCallback is called after every game list page.
func WithPageCallback(fn func(offset, count int)) Option {
	return func(f *Fetcher) { f.onPage = fn }
}

// NewFetcher builds a fetcher. Credentials are resolved through provider at
// the start of every Fetch.
func NewFetcher(api API, provider credentials.Provider, opts ...Option) *Fetcher {
	f := &Fetcher{
		api:                  api,
		provider:             provider,
		consoleID:            DefaultConsoleID,
		onlyWithAchievements: true,
		pacing:               DefaultPacing,
		backoff:              append([]time.Duration(nil), DefaultBackoff...),
		sleep:                SleepWithContext,
		now:                  time.Now,
		logger:               logging.NewComponentLogger(nil, "fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Stats reports the counters of the most recent Fetch.
func (f *Fetcher) Stats() FetchStats {
	return f.stats
}

// Fetch returns a lazy sequence of every game on the console. The sequence
// issues strictly sequential requests and ends after the first page shorter
// than pageSize. It yields a single error and stops on any terminal failure.
// The sequence can be ranged over once; later ranges yield an error.
func (f *Fetcher) Fetch(ctx context.Context, pageSize int) iter.Seq2[RawRecord, error] {
	var used atomic.Bool
	return func(yield func(RawRecord, error) bool) {
		if used.Swap(true) {
			yield(RawRecord{}, services.Wrap(services.ErrValidation, "fetcher", "fetch", "sequence already consumed", nil))
			return
		}
		if pageSize <= 0 {
			yield(RawRecord{}, services.Wrap(services.ErrValidation, "fetcher", "fetch", "page size must be positive", nil))
			return
		}
		if f.api == nil {
			yield(RawRecord{}, services.Wrap(services.ErrConfiguration, "fetcher", "fetch", "api client not configured", nil))
			return
		}
		creds, err := credentials.Require(ctx, f.provider)
		if err != nil {
			yield(RawRecord{}, err)
			return
		}
		f.run(ctx, creds, pageSize, yield)
	}
}

func (f *Fetcher) run(ctx context.Context, creds retroachievements.Credentials, pageSize int, yield func(RawRecord, error) bool) {
	f.stats = FetchStats{}
	r := &retrier{
		backoff: f.backoff,
		sleep:   f.sleep,
		pace:    newPacer(f.pacing, f.now, f.sleep),
		logger:  f.logger,
	}
	defer func() { f.stats.Requests = r.requests }()

	seen := make(map[int64]struct{})
	start := time.Now()
	for offset := 0; ; {
		page, err := do(ctx, r, "game list", func(ctx context.Context) ([]retroachievements.GameListEntry, error) {
			return f.api.GameList(ctx, creds, retroachievements.ListOptions{
				ConsoleID:            f.consoleID,
				OnlyWithAchievements: f.onlyWithAchievements,
				Offset:               offset,
				Count:                pageSize,
			})
		})
		if err != nil {
			yield(RawRecord{}, err)
			return
		}
		f.stats.Pages++
		f.logger.Debug("game list page retrieved",
			logging.Int("offset", offset),
			logging.Int("records", len(page)),
		)
		if f.onPage != nil {
			f.onPage(offset, len(page))
		}

		// Games of a page are yielded only after the whole page is complete.
		completed := make([]RawRecord, 0, len(page))
		for _, game := range page {
			if _, dup := seen[game.ID]; dup {
				f.logger.Debug("game listed twice; keeping first listing",
					logging.Int64("game_id", game.ID),
					logging.Int("offset", offset),
				)
				continue
			}
			seen[game.ID] = struct{}{}
			raw, err := f.complete(ctx, r, creds, game)
			if err != nil {
				yield(RawRecord{}, err)
				return
			}
			completed = append(completed, raw)
		}
		for _, raw := range completed {
			f.stats.Games++
			if !yield(raw, nil) {
				return
			}
		}

		if len(page) < pageSize {
			break
		}
		offset += len(page)
	}
	f.logger.Info("catalog retrieved",
		logging.Int("games", f.stats.Games),
		logging.Int("pages", f.stats.Pages),
		logging.Int("details_skipped", f.stats.DetailsSkipped),
		logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
}

// complete adds the extended record and hashes to a listed game. Titles that
// already mark a game as excluded skip both requests.
func (f *Fetcher) complete(ctx context.Context, r *retrier, creds retroachievements.Credentials, game retroachievements.GameListEntry) (RawRecord, error) {
	raw := RawRecord{
		ID:              game.ID,
		Title:           game.Title,
		ConsoleID:       game.ConsoleID,
		ConsoleName:     game.ConsoleName,
		NumAchievements: game.NumAchievements,
	}
	if titleExclusion(game.Title) != ReasonNone {
		f.stats.DetailsSkipped++
		return raw, nil
	}
	if err := ctx.Err(); err != nil {
		return raw, services.Wrap(services.ErrNetwork, "fetcher", "fetch", "cancelled", err)
	}

	ext, err := do(ctx, r, "game extended", func(ctx context.Context) (*retroachievements.GameExtended, error) {
		return f.api.GameExtended(ctx, creds, game.ID)
	})
	if err != nil {
		return raw, err
	}
	hashes, err := do(ctx, r, "game hashes", func(ctx context.Context) ([]retroachievements.Hash, error) {
		return f.api.GameHashes(ctx, creds, game.ID)
	})
	if err != nil {
		return raw, err
	}

	raw.ParentGameID = ext.ParentGameID
	raw.Info = ext.Raw
	if raw.Info == nil {
		raw.Info = []byte("{}")
	}
	if hashes == nil {
		hashes = []retroachievements.Hash{}
	}
	raw.Hashes = hashes
	return raw, nil
}
