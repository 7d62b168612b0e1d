package dedupe

// Option applies a configuration option to the Set.
type Option func(*memorySet)

// WithMaxSize bounds the number of keys kept. Once full, the oldest key is
// forgotten. maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(s *memorySet) {
		s.maxSize = maxSize
	}
}
