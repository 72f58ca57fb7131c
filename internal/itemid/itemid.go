// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package itemid derives content-addressed identities for note items.
// The same logical item always hashes to the same ID, across runs and
// platforms, which is what lets re-extraction converge instead of
// duplicating items.
package itemid

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Prefix tags every ID with the hash algorithm that produced it.
const Prefix = "sha256:"

var idPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// Compute returns the deterministic ID for an item. The ID covers book,
// author, section, and content, so the same note under two books gets
// two IDs, while identical content in the same place is stable across
// versions. Field order and the "|" delimiter are part of the format;
// changing either invalidates every previously written log.
func Compute(bookTitle, authorLastName, authorFirstName, section, content string) string {
	canonical := strings.Join([]string{
		bookTitle, authorLastName, authorFirstName, section, content,
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return Prefix + hex.EncodeToString(sum[:])
}

// Valid reports whether id has the expected "sha256:<64 hex>" shape.
func Valid(id string) bool {
	return idPattern.MatchString(id)
}
