package dice

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mathrand "math/rand"
	"sync"
)

// Source is the randomness provider behind the default RollFunc.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollFunc produces one die outcome in [1, faces]. Evaluators call it once
// per physical die, in roll order.
type RollFunc func(faces int) (int, error)

// cryptoSource implements Source using crypto/rand.
//
// Invariant: All values produced are uniformly distributed in [0, n) for any n > 0.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
// Panics with "dice: crypto/rand failure: <err>" if crypto/rand fails.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// seededSource is a deterministic Source for replays and reproducible runs.
type seededSource struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeededSource returns a deterministic Source: two sources built from the
// same seed produce the same sequence.
func NewSeededSource(seed int64) Source {
	return &seededSource{rng: mathrand.New(mathrand.NewSource(seed))}
}

// Intn returns a pseudo-random int in [0, n).
//
// Precondition: n > 0.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// FromSource adapts a Source into a RollFunc returning values in [1, faces].
//
// Precondition: src must be non-nil.
func FromSource(src Source) RollFunc {
	return func(faces int) (int, error) {
		if faces <= 0 {
			return 0, fmt.Errorf("%w: cannot roll a die with %d faces", ErrInvalidDice, faces)
		}
		return src.Intn(faces) + 1, nil
	}
}

// MaxRoll is a RollFunc that always rolls the highest face.
func MaxRoll(faces int) (int, error) {
	return faces, nil
}

// Scripted returns a RollFunc that replays values in order, ignoring faces.
// Once the values are used up it fails with ErrScriptExhausted.
//
// The returned RollFunc is not safe for concurrent use.
func Scripted(values ...int) RollFunc {
	queue := append([]int(nil), values...)
	return func(faces int) (int, error) {
		if len(queue) == 0 {
			return 0, fmt.Errorf("%w: no value left for a d%d", ErrScriptExhausted, faces)
		}
		v := queue[0]
		queue = queue[1:]
		return v, nil
	}
}

// Source names accepted by NewNamedSource.
const (
	SourceCrypto = "crypto"
	SourceSeeded = "seeded"
)

// NewNamedSource returns the Source called name. seed is used only by
// SourceSeeded.
//
// Postcondition: Returns a non-nil Source, or an error for an unknown name.
func NewNamedSource(name string, seed int64) (Source, error) {
	switch name {
	case SourceCrypto:
		return NewCryptoSource(), nil
	case SourceSeeded:
		return NewSeededSource(seed), nil
	default:
		return nil, fmt.Errorf("dice: unknown source %q", name)
	}
}
