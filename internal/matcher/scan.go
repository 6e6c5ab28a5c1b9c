package matcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"romsift/internal/catalog"
	"romsift/internal/checksum"
	"romsift/internal/logging"
	"romsift/internal/services"
)

// DefaultExtensions are the file extensions considered ROM images.
var DefaultExtensions = []string{".z64", ".n64", ".v64", ".zip"}

// Matcher scans directories and resolves files against a catalog index.
type Matcher struct {
	computer          *checksum.Computer
	extensions        map[string]struct{}
	regions           *RegionTable
	regionFromCatalog bool
	logger            *slog.Logger
	onFile            func(Candidate)
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithExtensions replaces the recognized extensions. Matching is case-insensitive.
func WithExtensions(exts []string) Option {
	return func(m *Matcher) {
		if len(exts) == 0 {
			return
		}
		m.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			m.extensions[ext] = struct{}{}
		}
	}
}

// WithRegionPriority sets the preferred regions, best first.
func WithRegionPriority(priority []string) Option {
	return func(m *Matcher) { m.regions = NewRegionTable(priority) }
}

// WithRegionFromCatalog falls back to the catalog label of a matched
// checksum when the file name carries no region.
func WithRegionFromCatalog(enabled bool) Option {
	return func(m *Matcher) { m.regionFromCatalog = enabled }
}

// WithComputer shares a checksum computer, and its memo, with other components.
func WithComputer(c *checksum.Computer) Option {
	return func(m *Matcher) {
		if c != nil {
			m.computer = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logging.NewComponentLogger(logger, "matcher") }
}

// WithFileCallback is called after each file is hashed.
func WithFileCallback(fn func(Candidate)) Option {
	return func(m *Matcher) { m.onFile = fn }
}

// New builds a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		computer: checksum.New(),
		regions:  NewRegionTable(DefaultPriority),
		logger:   logging.NewComponentLogger(nil, "matcher"),
	}
	WithExtensions(DefaultExtensions)(m)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Regions exposes the region table in use.
func (m *Matcher) Regions() *RegionTable {
	return m.regions
}

// Scan hashes dir and matches the result against index.
func (m *Matcher) Scan(ctx context.Context, dir string, index *catalog.Index) ([]Candidate, error) {
	candidates, err := m.Hash(ctx, dir)
	if err != nil {
		return nil, err
	}
	return m.Match(candidates, index), nil
}

// Hash lists the regular files directly inside dir in lexical order and
// checksums those with a recognized extension. Subdirectories are ignored.
// A file that cannot be hashed becomes a candidate with its error and the
// scan continues; only a directory that cannot be listed fails.
func (m *Matcher) Hash(ctx context.Context, dir string) ([]Candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "matcher", "list directory", dir, err)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !m.recognized(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		c := Candidate{
			Path:     path,
			Name:     entry.Name(),
			Size:     info.Size(),
			Position: len(candidates),
			Status:   StatusHashed,
		}
		c.Region, c.Rank = m.regions.Tag(entry.Name())

		sum, err := m.computer.Compute(path)
		if err != nil {
			c.Err = err
			c.Status = StatusUnreadable
			if errors.Is(err, services.ErrUnsupportedFormat) {
				c.Status = StatusUnsupported
			}
			logging.WarnWithContext(m.logger, "file skipped", "scan_"+string(c.Status),
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file left out of matching"),
				logging.String(logging.FieldErrorHint, "check the file is a readable ROM or a zip holding exactly one ROM"),
			)
		} else {
			c.Checksum = sum
		}
		if m.onFile != nil {
			m.onFile(c)
		}
		candidates = append(candidates, c)
	}
	m.logger.Debug("directory hashed",
		logging.String(logging.FieldPath, dir),
		logging.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// Match resolves hashed candidates against index and returns new values;
// the input slice is not modified.
func (m *Matcher) Match(candidates []Candidate, index *catalog.Index) []Candidate {
	out := make([]Candidate, len(candidates))
	for i, c := range candidates {
		if c.Err == nil && c.Checksum != "" {
			c.Record = nil
			c.ExcludedID = 0
			if rec, ok := index.Lookup(c.Checksum); ok {
				c.Record = rec
				c.Status = StatusMatched
				if c.Region == "" && m.regionFromCatalog {
					c.Region, c.Rank = m.regions.Tag(rec.Labels[c.Checksum])
				}
			} else if id, ok := index.ExcludedOwner(c.Checksum); ok {
				c.ExcludedID = id
				c.Status = StatusExcluded
			} else {
				c.Status = StatusUnmatched
			}
		}
		out[i] = c
	}
	return out
}

func (m *Matcher) recognized(name string) bool {
	_, ok := m.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
