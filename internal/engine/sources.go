package engine

import (
	"github.com/bianoble/repolock/internal/config"
	"github.com/bianoble/repolock/internal/source"
	"github.com/bianoble/repolock/internal/store"
)

// NewRegistry creates a registry with the built-in fetchers and ref
// resolvers. The store used by the git fetcher is only opened when that
// fetcher is selected.
func NewRegistry(fetch config.Fetch) (*source.Registry, error) {
	reg := source.NewRegistry()
	reg.RegisterFetcher(config.FetcherNix, &source.NixPrefetchGit{})
	reg.RegisterResolver(config.ResolverCLI, &source.GitLsRemote{})
	reg.RegisterResolver(config.ResolverNative, source.NativeLsRemote{})

	if fetch.Fetcher == config.FetcherGit {
		dir := fetch.StoreDir
		if dir == "" {
			dir = store.DefaultDir()
		}
		s, err := store.New(dir)
		if err != nil {
			return nil, err
		}
		reg.RegisterFetcher(config.FetcherGit, &source.GitFetcher{Store: s})
	}
	return reg, nil
}

// Collaborators returns the fetcher and ref resolver selected by fetch.
func Collaborators(fetch config.Fetch) (source.Fetcher, source.RefResolver, error) {
	reg, err := NewRegistry(fetch)
	if err != nil {
		return nil, nil, err
	}
	f, err := reg.Fetcher(fetch.Fetcher)
	if err != nil {
		return nil, nil, err
	}
	r, err := reg.Resolver(fetch.Resolver)
	if err != nil {
		return nil, nil, err
	}
	return f, r, nil
}
