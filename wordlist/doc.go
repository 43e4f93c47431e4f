// Package wordlist loads and holds the ordered candidate list.
//
// A Store is loaded once at session start from a plain-text file (one
// candidate per line, 0-based line number as the candidate id) and is
// never mutated afterwards, so it is safe for concurrent reads.
package wordlist
