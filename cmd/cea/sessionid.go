package main

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newSessionID builds "session-<ms>-<6 base36 chars>" per spec.md §4.8.
func newSessionID() string {
	return fmt.Sprintf("session-%d-%s", time.Now().UnixMilli(), randomBase36(6))
}

func randomBase36(n int) string {
	var b strings.Builder
	alphabetLen := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand failure is unrecoverable; fall back to a fixed
			// character rather than panicking a headless run over an ID
			// suffix.
			b.WriteByte(base36Alphabet[0])
			continue
		}
		b.WriteByte(base36Alphabet[idx.Int64()])
	}
	return b.String()
}
