// Package idgen generates short, URL-safe identifiers for requests and
// backup artifacts, backed by nanoid.
package idgen

import (
	"fmt"
	"strconv"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the kinds of identifiers the service hands out.
const (
	RequestPrefix = "req-"
	BackupPrefix  = "bak-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// New returns a random ID with the given prefix.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// Request returns a request ID. If the random source fails it falls back to
// a base-36 timestamp so callers never have to handle an error.
func Request() string {
	id, err := New(RequestPrefix)
	if err != nil {
		return RequestPrefix + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return id
}
