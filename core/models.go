package core

import (
	"github.com/go-crypt/x/blake2b"
)

// ID identifies a candidate by its 0-based position in the word list.
// IDs are positional, so any change to the underlying list invalidates
// everything derived from it.
type ID int

// FingerprintSize is the byte length of a word list fingerprint.
const FingerprintSize = 32

// Fingerprint is a BLAKE2b-256 digest over an ordered candidate list.
// It is stored alongside derived artifacts (the embedding cache) to detect
// staleness without comparing every entry.
type Fingerprint [FingerprintSize]byte

// FingerprintTexts computes the fingerprint of an ordered candidate list.
// Each text is length-framed before hashing so that reordering, edits,
// additions and removals all produce distinct digests.
func FingerprintTexts(texts []string) Fingerprint {
	h, _ := blake2b.New(FingerprintSize, nil)
	var frame [4]byte
	for _, text := range texts {
		n := len(text)
		frame[0] = byte(n)
		frame[1] = byte(n >> 8)
		frame[2] = byte(n >> 16)
		frame[3] = byte(n >> 24)
		h.Write(frame[:])
		h.Write([]byte(text))
	}
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}

// Candidate is a single ranked string option.
// Candidates are immutable once loaded.
type Candidate struct {
	Id   ID
	Text string
}

// MatchResult is one entry of a ranked result list. Produced per query,
// never persisted.
type MatchResult struct {
	CandidateId ID
	Text        string
	Score       float64
	Positions   []int // matched character positions, lexical mode only
}
