package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	messagePrefix        = "msgrec"
	messageSessionPrefix = "msgses"
	sessionPrefix        = "sesrec"
	promptPrefix         = "prorec"
)

// makeMessageKey generates a key for a message by ID.
func makeMessageKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", messagePrefix, id))
}

// makeMessageSessionKey generates a composite key for the session index.
// Format: prefix:sessionID:createdAt:messageID
func makeMessageSessionKey(sessionID string, createdAt time.Time, id string) []byte {
	prefix := fmt.Sprintf("%s:%s:", messageSessionPrefix, sessionID)
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 + len(id)
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], []byte(id))
	return buf
}

// makePartialMessageSessionKey generates the prefix for one session's index.
func makePartialMessageSessionKey(sessionID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", messageSessionPrefix, sessionID))
}

// makeSessionKey generates a key for a session by ID.
func makeSessionKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", sessionPrefix, id))
}

// makePromptKey generates a key for a client instruction template.
func makePromptKey(clientID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", promptPrefix, clientID))
}
