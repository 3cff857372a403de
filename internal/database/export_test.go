package database

import "context"

type DBPool = dbPool

// WithNewPool overrides the pool constructor.
func WithNewPool(newPool func(ctx context.Context, dsn string) (DBPool, error)) Options {
	return func(o *options) {
		o.newPool = newPool
	}
}

// Translate exposes the driver error mapping.
func Translate(err error) error {
	return translate(err)
}

// LikePattern exposes the ILIKE escaping.
func LikePattern(s string) string {
	return likePattern(s)
}
