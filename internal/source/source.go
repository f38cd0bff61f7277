package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRevNotFound is returned, possibly wrapped, when a ref does not exist at
// the remote.
var ErrRevNotFound = errors.New("revision not found at remote")

// FetchRequest asks a Fetcher to materialize one revision of a repository.
type FetchRequest struct {
	URL             string
	Revision        string
	FetchLFS        bool
	FetchSubmodules bool
}

// FetchResult describes materialized repository content.
type FetchResult struct {
	Commit      string `json:"commit"`
	ContentHash string `json:"content_hash"`
	ContentPath string `json:"content_path"`
	Timestamp   uint64 `json:"timestamp"`
}

// Fetcher materializes repository content. Fetching the same commit twice
// must yield the same content hash.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// RefResolver maps a ref name such as refs/heads/main to a commit id
// without fetching content.
type RefResolver interface {
	ResolveRef(ctx context.Context, url, ref string) (string, error)
}

// Cleaner is implemented by fetchers that can release materialized content.
type Cleaner interface {
	Cleanup(ctx context.Context, contentPath string) error
}

// SourceError represents a failed operation against one repository.
type SourceError struct {
	Source    string
	Operation string
	Err       error
	Hint      string
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s: %s failed: %s", e.Source, e.Operation, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsCommitID reports whether rev is a full 40-character hex commit id.
func IsCommitID(rev string) bool {
	if len(rev) != 40 {
		return false
	}
	for _, c := range rev {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// SameCommit compares two commit ids case-insensitively.
func SameCommit(a, b string) bool {
	return strings.EqualFold(a, b)
}

// Registry maps backend names to fetchers and ref resolvers.
type Registry struct {
	fetchers  map[string]Fetcher
	resolvers map[string]RefResolver
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fetchers:  make(map[string]Fetcher),
		resolvers: make(map[string]RefResolver),
	}
}

// RegisterFetcher adds a fetcher under name.
func (r *Registry) RegisterFetcher(name string, f Fetcher) {
	r.fetchers[name] = f
}

// RegisterResolver adds a ref resolver under name.
func (r *Registry) RegisterResolver(name string, res RefResolver) {
	r.resolvers[name] = res
}

// Fetcher returns the fetcher registered under name.
func (r *Registry) Fetcher(name string) (Fetcher, error) {
	f, ok := r.fetchers[name]
	if !ok {
		return nil, fmt.Errorf("unknown fetcher '%s', supported fetchers: %s", name, supported(r.fetchers))
	}
	return f, nil
}

// Resolver returns the ref resolver registered under name.
func (r *Registry) Resolver(name string) (RefResolver, error) {
	res, ok := r.resolvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown resolver '%s', supported resolvers: %s", name, supported(r.resolvers))
	}
	return res, nil
}

func supported[T any](m map[string]T) string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	if len(names) == 0 {
		return "(none registered)"
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
