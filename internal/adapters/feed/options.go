package feed

import (
	"net/http"
	"time"

	"github.com/okian/cocstats/pkg/logger"
)

const (
	defaultBuffer       = 4
	defaultFetchTimeout = 15 * time.Second
)

type settings struct {
	buffer       int
	fetchTimeout time.Duration
	client       *http.Client
	authToken    string
	logger       logger.Logger
	now          func() time.Time
}

func newSettings(name string, opts []Option) settings {
	s := settings{
		buffer:       defaultBuffer,
		fetchTimeout: defaultFetchTimeout,
		client:       &http.Client{},
		logger:       logger.Get().Named(name),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a feed implementation.
type Option func(*settings)

// WithBuffer sets how many undelivered values a subscription keeps.
func WithBuffer(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// WithFetchTimeout bounds the full-value refetch done after a partial update.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithHTTPClient sets the client used for streaming and fetching.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.client = c
		}
	}
}

// WithAuthToken appends ?auth=<token> to every database request.
func WithAuthToken(token string) Option {
	return func(s *settings) {
		s.authToken = token
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source stamped on delivered events.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
