package casefile

import (
	_ "embed"
)

//go:embed cases/midnight-express.json
var midnightExpress []byte

// MidnightExpress loads the built-in case. It is the default content for new
// sessions and the fixture for tests.
func MidnightExpress() (*Bundle, error) {
	return Parse(midnightExpress)
}
