// Package matcher maps local ROM files to catalog records and picks one file
// per record.
//
// Hash lists a directory (non-recursive, lexical order) and checksums every
// file with a recognized extension. Match looks the checksums up in a
// catalog index. Resolve groups matched candidates by record and keeps the
// candidate with the best region; the earliest file in scan order wins ties.
//
// Region tags come from file names, using the vocabulary in regions.go.
package matcher
