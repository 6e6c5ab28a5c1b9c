// Package services defines shared utilities consumed by the catalog fetcher,
// the matcher, the organizer and the CLI.
//
// Key responsibilities:
//   - Sentinel error markers plus the Wrap helper so every failure carries its
//     class (auth, network, rate limit, per-file) through %w chains.
//   - Context helpers that stamp run identifiers and component names for
//     logging correlation.
//
// Fetch-time markers are fatal for the whole retrieval; the per-file markers
// (ErrUnreadableFile, ErrUnsupportedFormat) are recoverable and only skip the
// affected file.
package services
