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


package embedcache

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/wordfind/core"
)

// Cache file layout:
//
//	magic "WFEC"                  4 bytes
//	format version                varint
//	vector dimension              varint
//	candidate count               varint
//	word list fingerprint         32 bytes
//	count x dimension float32     4 bytes each, candidate id order
//
// Readers validate magic, version and that the body length equals
// count x dimension x 4 before trusting any vector data.

const formatVersion = 1

const float32Size = 4

var cacheMagic = [4]byte{'W', 'F', 'E', 'C'}

// marshalCache serializes a cache to its binary file representation.
func marshalCache(c *Cache) []byte {
	size := len(cacheMagic) +
		varint.Int.Size(formatVersion) +
		varint.Int.Size(c.dim) +
		varint.Int.Size(len(c.vectors)) +
		core.FingerprintSize +
		len(c.vectors)*c.dim*float32Size

	bs := make([]byte, size)
	n := copy(bs, cacheMagic[:])
	n += varint.Int.Marshal(formatVersion, bs[n:])
	n += varint.Int.Marshal(c.dim, bs[n:])
	n += varint.Int.Marshal(len(c.vectors), bs[n:])
	n += copy(bs[n:], c.fingerprint[:])
	for _, vec := range c.vectors {
		for _, v := range vec {
			n += raw.Float32.Marshal(v, bs[n:])
		}
	}
	return bs[:n]
}

// unmarshalCache parses and validates the binary cache representation.
// Every structural defect maps to ErrCacheCorrupt.
func unmarshalCache(bs []byte) (*Cache, error) {
	if len(bs) < len(cacheMagic) || !bytes.Equal(bs[:len(cacheMagic)], cacheMagic[:]) {
		return nil, fmt.Errorf("bad magic: %w", ErrCacheCorrupt)
	}
	n := len(cacheMagic)

	version, vn, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("truncated header: %w", ErrCacheCorrupt)
	}
	n += vn
	if version != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d: %w", version, ErrCacheCorrupt)
	}

	dim, vn, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("truncated header: %w", ErrCacheCorrupt)
	}
	n += vn

	count, vn, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("truncated header: %w", ErrCacheCorrupt)
	}
	n += vn

	if dim < 0 || count < 0 || (count > 0 && dim == 0) {
		return nil, fmt.Errorf("invalid dimensions (dim=%d count=%d): %w", dim, count, ErrCacheCorrupt)
	}

	if len(bs[n:]) < core.FingerprintSize {
		return nil, fmt.Errorf("truncated fingerprint: %w", ErrCacheCorrupt)
	}
	var fp core.Fingerprint
	n += copy(fp[:], bs[n:n+core.FingerprintSize])

	body := bs[n:]
	floats := len(body) / float32Size
	// Compared by division: a forged count or dimension must fail here,
	// never overflow count*dim*4 into a value the body happens to match.
	if len(body)%float32Size != 0 ||
		(dim == 0 && floats != 0) ||
		(dim > 0 && (floats%dim != 0 || floats/dim != count)) {
		return nil, fmt.Errorf("body length %d does not match %d vectors of dimension %d: %w",
			len(body), count, dim, ErrCacheCorrupt)
	}

	vectors := make([][]float32, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			v, vn, err := raw.Float32.Unmarshal(bs[n:])
			if err != nil {
				return nil, fmt.Errorf("truncated vector %d: %w", i, ErrCacheCorrupt)
			}
			vec[j] = v
			n += vn
		}
		vectors[i] = vec
	}

	return &Cache{
		dim:         dim,
		fingerprint: fp,
		vectors:     vectors,
	}, nil
}

// Save writes the cache to a file at the given path.
func Save(c *Cache, path string) error {
	if err := os.WriteFile(path, marshalCache(c), 0644); err != nil {
		return fmt.Errorf("write embedding cache %s: %w", path, err)
	}
	return nil
}

// Load reads a cache from the given path.
// Returns ErrCacheUnavailable if no file exists and ErrCacheCorrupt if the
// file fails structural validation.
func Load(path string) (*Cache, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrCacheUnavailable)
		}
		return nil, fmt.Errorf("read embedding cache %s: %w", path, err)
	}

	c, err := unmarshalCache(bs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
