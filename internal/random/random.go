package random

import (
	"crypto/rand"
	"math/big"

	"github.com/korpimaa/nightexpress/internal/errors"
)

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// codeRunes is the join-code alphabet. Lookalike characters (0/O, 1/I/L) are
// excluded so that a code read out loud over a classroom survives transcription.
var codeRunes = []rune("ABCDEFGHJKMNPQRSTUVWXYZ23456789")

// JoinCodeLength is the fixed length of session join codes.
const JoinCodeLength uint = 6

// Letters returns n cryptographically random ASCII letters.
func Letters(n uint) (string, error) {
	return pick(letterRunes, n)
}

// JoinCode returns a fresh candidate join code. Uniqueness is not guaranteed
// here; the caller is responsible for collision-checking against the store.
func JoinCode() (string, error) {
	code, err := pick(codeRunes, JoinCodeLength)
	if err != nil {
		return "", errors.Wrap(err, "generate join code")
	}
	return code, nil
}

// Index returns a uniformly random index in [0, n).
func Index(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("index range must be positive")
	}
	index, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, errors.Wrap(err, "draw random index")
	}
	return int(index.Int64()), nil
}

func pick(alphabet []rune, n uint) (string, error) {
	runes := make([]rune, n)
	maxIndex := big.NewInt(int64(len(alphabet)))
	for i := range runes {
		index, err := rand.Int(rand.Reader, maxIndex)
		if err != nil {
			return "", err
		}
		runes[i] = alphabet[index.Int64()]
	}
	return string(runes), nil
}
