// Package guard rejects command text that looks unsafe before it reaches a
// database.
//
// The checks are a conservative heuristic, not a parser: any quote or comment
// marker is refused, which also refuses some legitimate literals.
package guard

import (
	"errors"
	"regexp"
	"strings"

	"github.com/satishbabariya/coconutdal/runtime/dalerr"
)

var (
	// ErrUnsafeCommand is returned for text containing a quote or a comment marker.
	ErrUnsafeCommand = errors.New("command is not safe: text query cannot contain raw string input or comments")
	// ErrShutdownAttempt is returned for text that tries to shut the server down.
	ErrShutdownAttempt = errors.New("command attempts to shut down the database server")
)

// unsafeTokens may open a string literal or hide trailing SQL in a comment.
var unsafeTokens = []string{"'", "--", "/*", "*/"}

var shutdownPattern = regexp.MustCompile(`(?i);\s*shutdown\b`)

// Check validates text. It returns a dalerr.Validation error for quotes and
// comments and a dalerr.FatalIntent error for a shutdown sequence.
func Check(text string) error {
	for _, token := range unsafeTokens {
		if strings.Contains(text, token) {
			return dalerr.New(dalerr.Validation, "guard", ErrUnsafeCommand)
		}
	}
	if shutdownPattern.MatchString(text) {
		return dalerr.New(dalerr.FatalIntent, "guard", ErrShutdownAttempt)
	}
	return nil
}
