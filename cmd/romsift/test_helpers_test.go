package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"romsift/internal/catalog"
	"romsift/internal/config"
	"romsift/internal/retroachievements"
	"romsift/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("RETROACHIEVEMENTS_USERNAME", "")
	t.Setenv("RETROACHIEVEMENTS_API_KEY", "")

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	if err := os.MkdirAll(cfg.Paths.RomsDir, 0o755); err != nil {
		t.Fatalf("mkdir roms: %v", err)
	}
	configPath := filepath.Join(base, "config.toml")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := buildRootCommand(rootOptions{})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if env != nil {
		flags = append(flags, "--config", env.configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func decodeJSON(t *testing.T, data string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(data), v); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
}

// fakeGame is one game served by newFakeAPI.
type fakeGame struct {
	id           int64
	title        string
	achievements int
	hashes       []retroachievements.Hash
}

// newFakeAPI serves the three catalog endpoints for the given games and
// rejects requests without credentials.
func newFakeAPI(t *testing.T, games ...fakeGame) *httptest.Server {
	t.Helper()
	byID := make(map[string]fakeGame, len(games))
	for _, g := range games {
		byID[fmt.Sprintf("%d", g.id)] = g
	}
	mux := http.NewServeMux()
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("z") == "" || q.Get("y") == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/API/API_GetGameList.php", auth(func(w http.ResponseWriter, r *http.Request) {
		list := make([]retroachievements.GameListEntry, 0, len(games))
		if r.URL.Query().Get("o") == "" {
			for _, g := range games {
				list = append(list, retroachievements.GameListEntry{
					ID: g.id, Title: g.title, ConsoleID: 2, ConsoleName: "Nintendo 64", NumAchievements: g.achievements,
				})
			}
		}
		_ = json.NewEncoder(w).Encode(list)
	}))
	mux.HandleFunc("/API/API_GetGameExtended.php", auth(func(w http.ResponseWriter, r *http.Request) {
		g, ok := byID[r.URL.Query().Get("i")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"ID":%d,"Title":%q,"ConsoleID":2,"ConsoleName":"Nintendo 64","ParentGameID":null,"NumAchievements":%d}`,
			g.id, g.title, g.achievements)
	}))
	mux.HandleFunc("/API/API_GetGameHashes.php", auth(func(w http.ResponseWriter, r *http.Request) {
		g, ok := byID[r.URL.Query().Get("i")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		hashes := g.hashes
		if hashes == nil {
			hashes = []retroachievements.Hash{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"Results": hashes})
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func sampleGames() []fakeGame {
	return []fakeGame{
		{id: 1, title: "Super Mario 64", achievements: 10, hashes: []retroachievements.Hash{
			{MD5: testsupport.MD5("mario-eu"), Name: "Super Mario 64 (Europe)"},
			{MD5: testsupport.MD5("mario-us"), Name: "Super Mario 64 (USA)"},
		}},
		{id: 2, title: "~Hack~ Mario Kart Deluxe", achievements: 5},
		{id: 3, title: "The Legend of Zelda: Ocarina of Time", achievements: 20, hashes: []retroachievements.Hash{
			{MD5: testsupport.MD5("zelda"), Name: "Legend of Zelda, The - Ocarina of Time (USA)"},
		}},
	}
}

// writeLightCatalog saves the canonical sample games as the light catalog.
func writeLightCatalog(t *testing.T, cfg *config.Config) {
	t.Helper()
	var records []catalog.RawRecord
	for _, g := range sampleGames() {
		records = append(records, catalog.RawRecord{
			ID:              g.id,
			Title:           g.title,
			NumAchievements: g.achievements,
			Hashes:          g.hashes,
			Info:            json.RawMessage("{}"),
		})
	}
	if err := catalog.SaveLight(cfg.LightCatalogPath(), records); err != nil {
		t.Fatalf("SaveLight: %v", err)
	}
}

func writeSampleRoms(t *testing.T, cfg *config.Config) {
	t.Helper()
	dir := cfg.Paths.RomsDir
	testsupport.WriteFile(t, filepath.Join(dir, "Super Mario 64 (USA).z64"), "mario-us")
	testsupport.WriteFile(t, filepath.Join(dir, "Super Mario 64 (Europe).z64"), "mario-eu")
	testsupport.WriteZip(t, filepath.Join(dir, "Zelda (USA).zip"), map[string]string{"Zelda (USA).z64": "zelda"})
	testsupport.WriteFile(t, filepath.Join(dir, "Unknown (Japan).n64"), "unknown")
	testsupport.WriteFile(t, filepath.Join(dir, "readme.txt"), "not a rom")
}
