package organizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"romsift/internal/checksum"
	"romsift/internal/fileutil"
	"romsift/internal/logging"
	"romsift/internal/matcher"
	"romsift/internal/services"
)

// LockName is the advisory lock file kept in the output directory.
const LockName = ".romsift.lock"

const fileMode os.FileMode = 0o644

var errFreeSpaceUnknown = errors.New("free space unknown on this platform")

// freeSpaceFunc allows tests to stub filesystem stats.
type freeSpaceFunc func(path string) (uint64, error)

// Organizer writes selections into one output directory.
type Organizer struct {
	outputDir  string
	overwrite  bool
	checkSpace bool
	dryRun     bool
	computer   *checksum.Computer
	logger     *slog.Logger
	freeSpace  freeSpaceFunc
	onResult   func(Result)
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithOverwrite replaces destinations whose content differs from the selection.
func WithOverwrite(enabled bool) Option {
	return func(o *Organizer) { o.overwrite = enabled }
}

// WithFreeSpaceCheck toggles the free space preflight.
func WithFreeSpaceCheck(enabled bool) Option {
	return func(o *Organizer) { o.checkSpace = enabled }
}

// WithDryRun resolves destinations without touching the filesystem.
func WithDryRun(enabled bool) Option {
	return func(o *Organizer) { o.dryRun = enabled }
}

// WithComputer shares a checksum computer, and its memo, with the matcher.
func WithComputer(c *checksum.Computer) Option {
	return func(o *Organizer) {
		if c != nil {
			o.computer = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Organizer) { o.logger = logging.NewComponentLogger(logger, "organizer") }
}

// WithResultCallback is called once per selection as the pass progresses.
func WithResultCallback(fn func(Result)) Option {
	return func(o *Organizer) { o.onResult = fn }
}

// New builds an Organizer writing to outputDir.
func New(outputDir string, opts ...Option) *Organizer {
	o := &Organizer{
		outputDir:  strings.TrimSpace(outputDir),
		checkSpace: true,
		computer:   checksum.New(),
		logger:     logging.NewComponentLogger(nil, "organizer"),
		freeSpace:  availableBytes,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OutputDir is the destination directory.
func (o *Organizer) OutputDir() string {
	return o.outputDir
}

// step is one planned write.
type step struct {
	result  Result
	source  string
	archive bool
	size    int64
	write   bool
}

// Materialize writes every selection into the output directory and returns
// one Result per selection, in input order. Failing selections are reported
// in their Result. The returned error is reserved for failures that stop the
// whole pass: an unusable output directory, a held lock, insufficient free
// space or cancellation.
func (o *Organizer) Materialize(ctx context.Context, selections []matcher.Selection) ([]Result, error) {
	if o.outputDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "organizer", "resolve output", "output directory not configured", nil)
	}
	logger := logging.WithContext(ctx, o.logger)

	if o.dryRun {
		steps, err := o.plan(ctx, selections)
		if err != nil {
			return nil, err
		}
		results := make([]Result, 0, len(steps))
		for _, s := range steps {
			if s.write {
				s.result.Outcome = OutcomePlanned
			}
			o.report(logger, s.result)
			results = append(results, s.result)
		}
		return results, nil
	}

	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "organizer", "create output", o.outputDir, err)
	}
	lock := flock.New(filepath.Join(o.outputDir, LockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "organizer", "lock output", o.outputDir, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "organizer", "lock output",
			"another romsift process is organizing "+o.outputDir, nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	steps, err := o.plan(ctx, selections)
	if err != nil {
		return nil, err
	}
	if err := o.preflight(logger, steps); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(steps))
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r := s.result
		if s.write {
			r = o.apply(s)
		}
		o.report(logger, r)
		results = append(results, r)
	}
	return results, nil
}

// plan resolves the destination of each selection and compares it with
// whatever already sits there. Nothing is written.
func (o *Organizer) plan(ctx context.Context, selections []matcher.Selection) ([]step, error) {
	steps := make([]step, 0, len(selections))
	claimed := make(map[string]int64, len(selections))
	for _, sel := range selections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := sel.Winner
		s := step{
			result:  Result{Selection: sel},
			source:  w.Path,
			archive: checksum.IsArchive(w.Path),
			size:    w.Size,
		}
		name := w.Name
		if s.archive {
			entry, err := checksum.Entry(w.Path)
			if err != nil {
				steps = append(steps, failed(s, err))
				continue
			}
			name, s.size = entry.Name, entry.Size
		}
		dest := filepath.Join(o.outputDir, name)
		s.result.Destination = dest
		if owner, taken := claimed[dest]; taken {
			steps = append(steps, failed(s, services.Wrap(services.ErrValidation, "organizer", "plan",
				fmt.Sprintf("%s is already the destination of game %d", name, owner), nil)))
			continue
		}
		claimed[dest] = sel.RecordID

		info, err := os.Stat(dest)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.write = true
		case err != nil:
			s = failed(s, services.Wrap(services.ErrUnreadableFile, "organizer", "inspect destination", dest, err))
		case !info.Mode().IsRegular():
			s = failed(s, services.Wrap(services.ErrValidation, "organizer", "inspect destination", dest+" is not a regular file", nil))
		default:
			sum, sumErr := o.computer.Compute(dest)
			switch {
			case sumErr == nil && strings.EqualFold(sum, w.Checksum):
				s.result.Outcome = OutcomeAlreadyPresent
			case o.overwrite:
				s.write = true
				s.result.Replaced = true
			default:
				s = failed(s, services.Wrap(services.ErrValidation, "organizer", "inspect destination",
					dest+" exists with different content; enable organize.overwrite_existing to replace it", nil))
			}
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func failed(s step, err error) step {
	s.write = false
	s.result = failResult(s.result, err)
	return s
}

func failResult(r Result, err error) Result {
	r.Outcome = OutcomeFailed
	r.Err = err
	return r
}

func (o *Organizer) preflight(logger *slog.Logger, steps []step) error {
	if !o.checkSpace {
		return nil
	}
	var need uint64
	for _, s := range steps {
		if s.write && s.size > 0 {
			need += uint64(s.size)
		}
	}
	if need == 0 {
		return nil
	}
	free, err := o.freeSpace(o.outputDir)
	if errors.Is(err, errFreeSpaceUnknown) {
		logger.Debug("free space check skipped", logging.Error(err))
		return nil
	}
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "organizer", "preflight", "statfs "+o.outputDir, err)
	}
	logger.Debug("free space checked",
		logging.String("needed", humanize.IBytes(need)),
		logging.String("available", humanize.IBytes(free)),
	)
	if free < need {
		return services.Wrap(services.ErrValidation, "organizer", "preflight",
			fmt.Sprintf("%s needs %s but only %s is free", o.outputDir, humanize.IBytes(need), humanize.IBytes(free)), nil)
	}
	return nil
}

func (o *Organizer) apply(s step) Result {
	r := s.result
	dest := r.Destination
	if !s.archive {
		n, err := fileutil.CopyFileAtomic(s.source, dest, fileMode)
		r.Bytes = n
		if err != nil {
			return failResult(r, services.Wrap(services.ErrUnreadableFile, "organizer", "copy", s.source, err))
		}
		r.Outcome = OutcomeCopied
		return r
	}

	rc, err := checksum.Open(s.source)
	if err != nil {
		return failResult(r, err)
	}
	defer rc.Close()
	err = fileutil.WriteAtomic(dest, fileMode, func(w io.Writer) error {
		n, err := io.Copy(w, rc)
		r.Bytes = n
		return err
	})
	if err != nil {
		r.Bytes = 0
		return failResult(r, services.Wrap(services.ErrUnreadableFile, "organizer", "extract", s.source, err))
	}
	r.Outcome = OutcomeExtracted
	return r
}

func (o *Organizer) report(logger *slog.Logger, r Result) {
	attrs := []logging.Attr{
		logging.Int64(logging.FieldGameID, r.Selection.RecordID),
		logging.String(logging.FieldPath, r.Destination),
		logging.String("source", r.Selection.Winner.Path),
		logging.String("outcome", string(r.Outcome)),
	}
	switch r.Outcome {
	case OutcomeFailed:
		attrs = append(attrs,
			logging.Error(r.Err),
			logging.String(logging.FieldImpact, "game missing from the output directory"),
		)
		if hint := services.Hint(r.Err); hint != "" {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
		}
		logging.WarnWithContext(logger, "selection not materialized", "organize_failed", attrs...)
	case OutcomeCopied, OutcomeExtracted:
		logger.Info("rom written", logging.Args(append(attrs,
			logging.Int64("bytes", r.Bytes),
			logging.Bool("replaced", r.Replaced),
		)...)...)
	default:
		logger.Debug("rom planned", logging.Args(attrs...)...)
	}
	if o.onResult != nil {
		o.onResult(r)
	}
}
