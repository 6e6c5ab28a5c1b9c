// Command romsift fetches the RetroAchievements catalog of a console, matches
// local ROM files against it and copies one preferred revision of every
// supported game into an output directory.
//
// Subcommands share a commandContext that loads configuration once, builds
// the run-scoped logger and resolves credentials from flags, the config file,
// the environment or an interactive prompt, in that order.
package main
