// Package util provides utility functions for the BuddyBot application.
package util

import (
	"math/rand/v2"
	"strings"
)

// SessionIDPrefix is prepended to every generated session id.
const SessionIDPrefix = "session_"

// sessionIDLength is the number of random characters after the prefix.
const sessionIDLength = 13

// GenerateRandomBase36 generates a random lowercase base36 string of the specified length.
func GenerateRandomBase36(length int) string {
	return randomString("0123456789abcdefghijklmnopqrstuvwxyz", length)
}

// GenerateSessionID returns an opaque session identifier such as
// "session_k3j9x0q2m1abc". Ids are collision-improbable, not cryptographically unique.
func GenerateSessionID() string {
	return SessionIDPrefix + GenerateRandomBase36(sessionIDLength)
}

func randomString(alphabet string, length int) string {
	if length <= 0 {
		return ""
	}
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		builder.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return builder.String()
}
