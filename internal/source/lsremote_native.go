package source

import (
	"context"
	"errors"
	"fmt"

	gitlib "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
)

const maxSymrefDepth = 5

// NativeLsRemote resolves refs with the go-git remote protocol client, so no
// git executable is needed for http(s) and ssh remotes.
type NativeLsRemote struct{}

func (NativeLsRemote) ResolveRef(ctx context.Context, url, ref string) (string, error) {
	remote := gitlib.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})

	refs, err := remote.ListContext(ctx, &gitlib.ListOptions{PeelingOption: gitlib.AppendPeeled})
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return "", &SourceError{Source: url, Operation: "ls-remote", Err: fmt.Errorf("%w: %s", ErrRevNotFound, ref)}
	}
	if err != nil {
		return "", &SourceError{Source: url, Operation: "ls-remote", Err: err, Hint: "check repo URL and authentication"}
	}

	commit, err := matchRef(refs, ref)
	if err != nil {
		return "", &SourceError{Source: url, Operation: "ls-remote", Err: err}
	}
	return commit, nil
}

// matchRef applies the same candidate order as parseLsRemote, following
// symbolic refs such as HEAD.
func matchRef(refs []*plumbing.Reference, name string) (string, error) {
	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, r := range refs {
		byName[r.Name()] = r
	}

	for _, candidate := range refCandidates(name) {
		if r, ok := byName[plumbing.ReferenceName(candidate+"^{}")]; ok && r.Type() == plumbing.HashReference {
			return r.Hash().String(), nil
		}

		r, ok := byName[plumbing.ReferenceName(candidate)]
		for i := 0; ok && r.Type() == plumbing.SymbolicReference && i < maxSymrefDepth; i++ {
			r, ok = byName[r.Target()]
		}
		if ok && r.Type() == plumbing.HashReference {
			return r.Hash().String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrRevNotFound, name)
}
