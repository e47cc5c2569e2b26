package utils

import (
	"crypto/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const roomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// roomRejectAbove is 248, the largest multiple of len(roomAlphabet) that fits in a byte.
const roomRejectAbove = 256 - 256%len(roomAlphabet)

// NewID returns a random UUID used as the session identifier.
func NewID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}

	// Fallback to timestamp if crypto/rand is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// NewRoomID returns a random alphanumeric identifier of length n.
func NewRoomID(n int) string {
	if n <= 0 {
		n = 5
	}
	buf := make([]byte, 0, n)
	chunk := make([]byte, n)
	for len(buf) < n {
		if _, err := rand.Read(chunk); err != nil {
			return fallbackRoomID(n)
		}
		for _, b := range chunk {
			// Bytes at or above the largest multiple of the alphabet size would skew the distribution.
			if int(b) >= roomRejectAbove {
				continue
			}
			buf = append(buf, roomAlphabet[int(b)%len(roomAlphabet)])
			if len(buf) == n {
				break
			}
		}
	}
	return string(buf)
}

func fallbackRoomID(n int) string {
	seed := uint64(time.Now().UnixNano())
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = roomAlphabet[seed%uint64(len(roomAlphabet))]
		seed = seed*6364136223846793005 + 1442695040888963407
	}
	return string(buf)
}
