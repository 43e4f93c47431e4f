// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package wordlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/poiesic/wordfind/core"
)

// Store is an immutable, ordered collection of candidates.
// The candidate id equals its position in the source file.
type Store struct {
	candidates []core.Candidate
}

// Load reads a word list from a plain-text file, one candidate per line.
// Trailing empty lines are ignored; interior empty lines are kept so that
// line numbers stay aligned with candidate ids.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list %s: %w", path, err)
	}
	defer f.Close()

	var texts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		texts = append(texts, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list %s: %w", path, err)
	}

	// Drop trailing empty lines
	for len(texts) > 0 && texts[len(texts)-1] == "" {
		texts = texts[:len(texts)-1]
	}

	return New(texts), nil
}

// New builds a Store from an ordered list of candidate texts.
func New(texts []string) *Store {
	candidates := make([]core.Candidate, len(texts))
	for i, text := range texts {
		candidates[i] = core.Candidate{Id: core.ID(i), Text: text}
	}
	return &Store{candidates: candidates}
}

// Len returns the number of candidates.
func (s *Store) Len() int {
	return len(s.candidates)
}

// Candidate returns the candidate with the given id and whether it exists.
func (s *Store) Candidate(id core.ID) (core.Candidate, bool) {
	if id < 0 || int(id) >= len(s.candidates) {
		return core.Candidate{}, false
	}
	return s.candidates[id], true
}

// Candidates returns all candidates in id order.
// The returned slice must not be modified.
func (s *Store) Candidates() []core.Candidate {
	return s.candidates
}

// Texts returns all candidate texts in id order.
func (s *Store) Texts() []string {
	texts := make([]string, len(s.candidates))
	for i, c := range s.candidates {
		texts[i] = c.Text
	}
	return texts
}

// Fingerprint computes the digest of the ordered candidate texts.
func (s *Store) Fingerprint() core.Fingerprint {
	return core.FingerprintTexts(s.Texts())
}
