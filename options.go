package sqlpager

import (
	"database/sql/driver"
	"log/slog"
	"time"
)

// DefaultCursorTTL is how long a stored cursor stays usable.
const DefaultCursorTTL = 30 * time.Minute

// Option configures a Compiler.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	cursorTTL time.Duration
	clock     func() time.Time
	converter driver.ValueConverter
}

func defaultConfig() config {
	return config{
		logger:    slog.Default(),
		cursorTTL: DefaultCursorTTL,
		clock:     time.Now,
		converter: driver.DefaultParameterConverter,
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCursorTTL sets the lifetime of created cursors. Zero disables expiry.
func WithCursorTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.cursorTTL = max(ttl, 0)
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithValueConverter sets how bound values are converted to driver values.
func WithValueConverter(converter driver.ValueConverter) Option {
	return func(c *config) {
		if converter != nil {
			c.converter = converter
		}
	}
}
