package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"romsift/internal/fileutil"
	"romsift/internal/retroachievements"
	"romsift/internal/services"
)

// FullEntry is one element of the full catalog form.
type FullEntry struct {
	GameInfo        json.RawMessage          `json:"game_info"`
	SupportedHashes []retroachievements.Hash `json:"supported_hashes"`
}

// LightEntry is one element of the light catalog form.
type LightEntry struct {
	GameID          int64                    `json:"game_id"`
	GameTitle       string                   `json:"game_title"`
	SupportedHashes []retroachievements.Hash `json:"supported_hashes"`
}

// listingInfo stands in for the extended payload of games whose details
// were not fetched.
type listingInfo struct {
	ID              int64  `json:"ID"`
	Title           string `json:"Title"`
	ConsoleID       int    `json:"ConsoleID"`
	ConsoleName     string `json:"ConsoleName"`
	NumAchievements int    `json:"NumAchievements"`
	ParentGameID    *int64 `json:"ParentGameID"`
}

// Capture passes seq through unchanged while appending every record to dst.
func Capture(seq iter.Seq2[RawRecord, error], dst *[]RawRecord) iter.Seq2[RawRecord, error] {
	return func(yield func(RawRecord, error) bool) {
		for raw, err := range seq {
			if err == nil {
				*dst = append(*dst, raw)
			}
			if !yield(raw, err) {
				return
			}
		}
	}
}

// FullForm converts fetched records to the full catalog form.
func FullForm(records []RawRecord) ([]FullEntry, error) {
	out := make([]FullEntry, 0, len(records))
	for _, raw := range records {
		info := raw.Info
		if info == nil {
			encoded, err := json.Marshal(listingInfo{
				ID:              raw.ID,
				Title:           raw.Title,
				ConsoleID:       raw.ConsoleID,
				ConsoleName:     raw.ConsoleName,
				NumAchievements: raw.NumAchievements,
				ParentGameID:    raw.ParentGameID,
			})
			if err != nil {
				return nil, fmt.Errorf("encode game %d: %w", raw.ID, err)
			}
			info = encoded
		}
		hashes := raw.Hashes
		if hashes == nil {
			hashes = []retroachievements.Hash{}
		}
		out = append(out, FullEntry{GameInfo: info, SupportedHashes: hashes})
	}
	return out, nil
}

// LightForm keeps the canonical games only.
func LightForm(records []RawRecord) []LightEntry {
	out := make([]LightEntry, 0, len(records))
	for _, raw := range records {
		if Classify(raw) != ReasonNone {
			continue
		}
		hashes := raw.Hashes
		if hashes == nil {
			hashes = []retroachievements.Hash{}
		}
		out = append(out, LightEntry{GameID: raw.ID, GameTitle: raw.Title, SupportedHashes: hashes})
	}
	return out
}

// SaveFull writes the full catalog form atomically.
func SaveFull(path string, records []RawRecord) error {
	entries, err := FullForm(records)
	if err != nil {
		return services.Wrap(services.ErrValidation, "catalog", "save full", path, err)
	}
	return writeJSON(path, entries)
}

// SaveLight writes the light catalog form atomically.
func SaveLight(path string, records []RawRecord) error {
	return writeJSON(path, LightForm(records))
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrValidation, "catalog", "encode", path, err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadLight rebuilds an index from a light catalog file. The light form
// drops achievement counts and parent ids, so only the title rules and the
// duplicate checksum check apply.
func LoadLight(path string) (*Index, BuildStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, BuildStats{}, services.Wrap(services.ErrConfiguration, "catalog", "load light", "catalog file not found; run 'romsift fetch' first", err)
		}
		return nil, BuildStats{}, fmt.Errorf("read %s: %w", path, err)
	}
	var entries []LightEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, BuildStats{}, services.Wrap(services.ErrValidation, "catalog", "load light", path, err)
	}
	return Build(func(yield func(RawRecord, error) bool) {
		for _, e := range entries {
			raw := RawRecord{
				ID:              e.GameID,
				Title:           e.GameTitle,
				NumAchievements: 1,
				Hashes:          e.SupportedHashes,
				Info:            json.RawMessage("{}"),
			}
			if !yield(raw, nil) {
				return
			}
		}
	})
}
