package retroachievements

import "encoding/json"

// Credentials authenticates every request.
type Credentials struct {
	Username string
	APIKey   string
}

// Complete reports whether both fields are present.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.APIKey != ""
}

// GameListEntry is one row of API_GetGameList.
type GameListEntry struct {
	ID              int64  `json:"ID"`
	Title           string `json:"Title"`
	ConsoleID       int    `json:"ConsoleID"`
	ConsoleName     string `json:"ConsoleName"`
	ImageIcon       string `json:"ImageIcon"`
	NumAchievements int    `json:"NumAchievements"`
	NumLeaderboards int    `json:"NumLeaderboards"`
	Points          int    `json:"Points"`
	DateModified    string `json:"DateModified"`
}

// GameExtended is the subset of API_GetGameExtended the catalog reads. Raw
// holds the verbatim payload for the full catalog form.
type GameExtended struct {
	ID              int64           `json:"ID"`
	Title           string          `json:"Title"`
	ConsoleID       int             `json:"ConsoleID"`
	ConsoleName     string          `json:"ConsoleName"`
	ParentGameID    *int64          `json:"ParentGameID"`
	Publisher       string          `json:"Publisher"`
	Developer       string          `json:"Developer"`
	Genre           string          `json:"Genre"`
	Released        string          `json:"Released"`
	NumAchievements int             `json:"NumAchievements"`
	Raw             json.RawMessage `json:"-"`
}

// Hash is one supported ROM revision.
type Hash struct {
	MD5      string   `json:"MD5"`
	Name     string   `json:"Name"`
	Labels   []string `json:"Labels"`
	PatchURL *string  `json:"PatchUrl"`
}

type hashesResponse struct {
	Results []Hash `json:"Results"`
}

// ListOptions selects one page of the console game list.
type ListOptions struct {
	ConsoleID            int
	OnlyWithAchievements bool
	Offset               int
	Count                int
}
