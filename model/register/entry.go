package register

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// MaxEntrySize bounds the payload of a single register entry.
const MaxEntrySize = 1024

// EntryHashLen is the byte length of an entry hash.
const EntryHashLen = sha256.Size

// EntryHash is the deterministic digest identifying one entry: the
// SHA-256 of the payload concatenated with the sorted parent hashes.
type EntryHash [EntryHashLen]byte

func (h EntryHash) String() string {
	return hex.EncodeToString(h[:])
}

// Entry is the opaque byte payload of one DAG node.
type Entry []byte

// Leaf pairs an entry with its hash; the set of leaves is the register's
// current value.
type Leaf struct {
	Hash  EntryHash
	Value Entry
}

// HashEntry computes the entry hash for a payload and its parent set.
// The parents are sorted before hashing so every replica derives the
// same hash for the same logical entry.
func HashEntry(payload Entry, parents []EntryHash) EntryHash {
	sorted := SortHashes(parents)
	hasher := sha256.New()
	hasher.Write(payload)
	for _, parent := range sorted {
		hasher.Write(parent[:])
	}
	var h EntryHash
	copy(h[:], hasher.Sum(nil))
	return h
}

// SortHashes returns a lexicographically sorted copy of the given hashes
// with duplicates removed.
func SortHashes(hashes []EntryHash) []EntryHash {
	sorted := make([]EntryHash, 0, len(hashes))
	seen := make(map[EntryHash]struct{}, len(hashes))
	for _, h := range hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		sorted = append(sorted, h)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})
	return sorted
}
