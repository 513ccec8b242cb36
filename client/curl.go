package client

import (
	"strings"

	"github.com/alessio/shellescape"
)

// curlCommand renders a request as a shell command that reproduces it, for debug output.
func curlCommand(method, url string, body []byte) string {
	args := []string{"curl", "-sS", "-X", method, url}
	if body != nil {
		args = append(args, "-H", "Content-Type: application/json", "-d", truncate(string(body), maxLoggedBody))
	}
	quoted := make([]string, 0, len(args))
	for _, a := range args {
		quoted = append(quoted, shellescape.Quote(a))
	}
	return strings.Join(quoted, " ")
}
