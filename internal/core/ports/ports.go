package ports

import (
	"context"
	"qxsense/internal/engine/ast"
	"qxsense/internal/engine/namespace"
)

// ExpressionParser turns a short expression snippet into the closed AST.
// Snippets that are not a single supported expression yield an
// EXPRESSION_PARSE_FAILURE domain error.
type ExpressionParser interface {
	ParseExpression(text string) (ast.Expr, error)
}

// ClassDatabase is the read side of the namespace database used by the
// resolver and the editor features.
type ClassDatabase interface {
	Exists(name string) bool
	ContainsPath(name string) bool
	Lookup(name string) namespace.LookupResult
	Record(name string) (*namespace.ClassRecord, bool)
	FullClassView(name string) (*namespace.ClassRecord, error)
	ClassNames() []string
}

// CachedRecord is one metadata file as remembered by a RecordStore.
type CachedRecord struct {
	Path    string
	Class   string
	Hash    uint64
	Payload []byte
}

// RecordStore persists decoded metadata between runs.
type RecordStore interface {
	Upsert(ctx context.Context, rec CachedRecord) error
	Get(ctx context.Context, path string) (CachedRecord, bool, error)
	Delete(ctx context.Context, path string) error
	All(ctx context.Context) ([]CachedRecord, error)
	Close() error
}
