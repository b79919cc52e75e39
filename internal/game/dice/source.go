package dice

import (
	"crypto/rand"
	"math/big"
	"sync"

	"go.uber.org/zap"
)

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn panics when n <= 0 or crypto/rand fails.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// SequenceSource replays a fixed list of face values (1-based) in order,
// wrapping around when exhausted. It lets tests and replays script exact
// die results.
//
// Precondition: every face must be in [1, n] for the n it is consumed by.
type SequenceSource struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewSequenceSource returns a SequenceSource yielding faces in order.
//
// Precondition: len(faces) > 0.
func NewSequenceSource(faces ...int) *SequenceSource {
	if len(faces) == 0 {
		panic("dice: NewSequenceSource requires at least one face")
	}
	return &SequenceSource{faces: faces}
}

// Intn returns the next scripted face minus one, clamped into [0, n).
func (s *SequenceSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	face := s.faces[s.next%len(s.faces)]
	s.next++
	v := face - 1
	if v < 0 {
		v = 0
	}
	if v >= n {
		v = n - 1
	}
	return v
}

// Consumed reports how many faces have been drawn.
func (s *SequenceSource) Consumed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// LoggingSource wraps a Source and logs every die at debug level.
type LoggingSource struct {
	src    Source
	logger *zap.Logger
}

// NewLoggingSource creates a LoggingSource.
//
// Precondition: src and logger must be non-nil.
func NewLoggingSource(src Source, logger *zap.Logger) *LoggingSource {
	return &LoggingSource{src: src, logger: logger}
}

// Intn draws from the wrapped source and logs the face rolled.
func (l *LoggingSource) Intn(n int) int {
	v := l.src.Intn(n)
	l.logger.Debug("die rolled",
		zap.Int("sides", n),
		zap.Int("face", v+1),
	)
	return v
}
