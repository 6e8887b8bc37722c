// Package random provides crypto/rand backed helpers for identifier
// generation.
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Integer returns a random integer as a string.
func Integer() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%d", n)
}

// Base36 returns a random lowercase base36 string of length n.
func Base36(n int) string {
	if n <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(base36Alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		out[i] = base36Alphabet[idx.Int64()]
	}
	return string(out)
}
