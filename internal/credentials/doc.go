// Package credentials resolves the RetroAchievements username and API key.
//
// A Provider is injected into the catalog fetcher. Static wraps values from
// flags or the config file, Env reads RETROACHIEVEMENTS_USERNAME and
// RETROACHIEVEMENTS_API_KEY, Prompt asks on an interactive terminal, and
// Chain merges fields from several providers in order.
package credentials
