// Package retroachievements is a small client for the RetroAchievements web
// API. It covers the three endpoints the catalog needs: the per-console game
// list, the extended game record and the supported ROM hashes.
//
// Every call is authenticated with query parameters (z = username, y = API
// key). Non-2xx responses surface as *StatusError, which unwraps to the
// services error markers so callers classify failures with errors.Is.
package retroachievements
