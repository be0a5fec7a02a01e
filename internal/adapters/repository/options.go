package repository

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithTablePrefix prefixes every table name, so several predictors can
// share one database.
func WithTablePrefix(prefix string) Option {
	return func(s *SQLStore) {
		s.prefix = prefix
	}
}
