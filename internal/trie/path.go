package trie

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// Terminator ends every path. Hash values are 0..3.
	Terminator = 4
	// Width is the number of distinct values a path position can take.
	Width = 5

	valuesPerComponent = 32
)

// Path is a key's position in the trie.
type Path []byte

// RootPath is the path of structural entries.
var RootPath = Path{Terminator}

// NormalizeKey trims leading and trailing slashes.
func NormalizeKey(key string) string {
	return strings.Trim(key, "/")
}

// PathOf hashes each slash-separated component of key into two-bit values,
// most significant first, and terminates the result.
func PathOf(key string) Path {
	key = NormalizeKey(key)
	if key == "" {
		return RootPath
	}
	parts := strings.Split(key, "/")
	p := make(Path, 0, len(parts)*valuesPerComponent+1)
	for _, part := range parts {
		h := xxhash.Sum64String(part)
		for i := 0; i < valuesPerComponent; i++ {
			p = append(p, byte(h>>(62-2*i))&3)
		}
	}
	return append(p, Terminator)
}

// Diverge returns the first index where a and b differ, or -1 if they are
// equal.
func Diverge(a, b Path) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
