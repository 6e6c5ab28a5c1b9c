// Package catalog retrieves the RetroAchievements game catalog and turns it
// into a checksum index.
//
// Fetcher pages through the console game list, completes each game with its
// extended record and supported hashes, and yields RawRecords lazily. It
// paces requests, and retries throttled requests on a fixed backoff schedule
// before giving up with ErrRateLimitExceeded.
//
// Build consumes that sequence all-or-nothing: non-canonical games (hacks,
// homebrew, prototypes, unlicensed, subsets, derivative entries and games
// without achievements) are dropped, and a checksum claimed by two canonical
// games fails the build.
//
// The full and light JSON forms written by SaveFull and SaveLight are the
// only artifacts persisted between runs. LoadLight rebuilds an Index from the
// light form.
package catalog
