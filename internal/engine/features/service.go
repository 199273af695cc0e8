// Package features answers editor requests (completion, go-to-definition and
// signature help) from the namespace database and the type resolver. Results
// are protocol neutral.
package features

import (
	"log/slog"
	"qxsense/internal/core/ports"
	"qxsense/internal/engine/resolve"
	"qxsense/internal/shared/observability"
	"time"
)

const DefaultMaxItems = 200

// ClassLocator maps a class name to the file that declares it.
type ClassLocator func(className string) string

type Option func(*Service)

func WithClassLocator(locate ClassLocator) Option {
	return func(s *Service) {
		if locate != nil {
			s.locate = locate
		}
	}
}

func WithMaxItems(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type Service struct {
	db       ports.ClassDatabase
	resolver *resolve.Resolver
	parser   ports.ExpressionParser
	locate   ClassLocator
	maxItems int
	logger   *slog.Logger
}

func New(db ports.ClassDatabase, resolver *resolve.Resolver, parser ports.ExpressionParser, opts ...Option) *Service {
	s := &Service{
		db:       db,
		resolver: resolver,
		parser:   parser,
		locate:   func(string) string { return "" },
		maxItems: DefaultMaxItems,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TypeAt resolves text as seen from offset.
func (s *Service) TypeAt(src string, offset int, text string) *resolve.TypeInfo {
	defer observe("type", time.Now())
	return s.resolver.Resolve(src, offset, text)
}

func observe(feature string, started time.Time) {
	observability.FeatureDuration.WithLabelValues(feature).Observe(time.Since(started).Seconds())
}
