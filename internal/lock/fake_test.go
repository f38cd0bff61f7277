package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bianoble/repolock/internal/manifest"
	"github.com/bianoble/repolock/internal/source"
)

const (
	commitA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	commitB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	commitC = "cccccccccccccccccccccccccccccccccccccccc"
)

type fakeRefs struct {
	refs  map[string]string // url + " " + ref -> commit
	calls int
}

func (f *fakeRefs) ResolveRef(_ context.Context, url, ref string) (string, error) {
	f.calls++
	c, ok := f.refs[url+" "+ref]
	if !ok {
		return "", &source.SourceError{Source: url, Operation: "ls-remote", Err: fmt.Errorf("%w: %s", source.ErrRevNotFound, ref)}
	}
	return c, nil
}

type fakeFetcher struct {
	// report overrides the commit returned for a requested commit.
	report map[string]string
	// forbid makes every call fail.
	forbid bool
	calls  []source.FetchRequest
	dir    string
}

func (f *fakeFetcher) Fetch(_ context.Context, req source.FetchRequest) (*source.FetchResult, error) {
	f.calls = append(f.calls, req)
	if f.forbid {
		return nil, errors.New("fetcher must not be called")
	}
	commit := req.Revision
	if c, ok := f.report[commit]; ok {
		commit = c
	}
	return &source.FetchResult{
		Commit:      commit,
		ContentHash: "sha256-" + commit[:8],
		ContentPath: f.dir + "/" + commit,
		Timestamp:   1700000000,
	}, nil
}

type fakeCleaner struct {
	cleaned []string
	err     error
}

func (f *fakeCleaner) Cleanup(_ context.Context, contentPath string) error {
	f.cleaned = append(f.cleaned, contentPath)
	return f.err
}

func project(path, url, rev string) manifest.Project {
	return manifest.Project{
		Path: path,
		RepoRef: manifest.GitRepoRef{
			RepoURL:  url,
			Revision: rev,
			FetchLFS: true,
		},
		Categories:  manifest.NewCategories(manifest.DefaultCategory),
		LineageDeps: manifest.NoDependenciesFile(),
		Active:      true,
	}
}

func lockFor(commit string) *Lock {
	return &Lock{
		Commit:      commit,
		ContentHash: "sha256-" + strings.ToLower(commit[:8]),
		ContentPath: "/store/" + commit,
		Timestamp:   1,
	}
}
