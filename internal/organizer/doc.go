// Package organizer materializes resolved selections into the output
// directory.
//
// Raw images are copied under their own name and zip archives have their
// single entry extracted. Every write goes through a temporary file and a
// rename. A pass holds an advisory lock on the output directory, checks free
// space before writing, and records one Result per selection; a failing
// selection never stops the others.
package organizer
