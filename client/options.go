package client

import "go.uber.org/zap"

const defaultReadBufSize = 16 * 1024

type config struct {
	logger      *zap.Logger
	readBufSize int
}

func defaultConfig() config {
	return config{
		logger:      zap.NewNop(),
		readBufSize: defaultReadBufSize,
	}
}

// Option configures a Session at construction time, mirroring the
// functional-options shape used throughout the pack this client was built
// from.
type Option func(*config)

// WithLogger attaches a zap logger used for diagnostic-only messages (a
// connection being marked broken, a malformed ack during a transaction). It
// is never consulted on the decode hot path. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReadBufferSize sets the FrameReader's read-ahead buffer size. The
// default is 16KiB.
func WithReadBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.readBufSize = n
		}
	}
}
