package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bianoble/repolock/internal/store"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// GitFetcher clones repositories with go-git into a content-addressed
// store. The working tree is kept without its .git directory. Git LFS
// pointers are left as-is.
type GitFetcher struct {
	Store *store.Store
}

func (g *GitFetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	key := store.Key(req.URL, strings.ToLower(req.Revision),
		strconv.FormatBool(req.FetchLFS), strconv.FormatBool(req.FetchSubmodules))

	if g.Store.Has(key) {
		var res FetchResult
		ok, err := g.Store.ReadMeta(key, &res)
		if err == nil && ok {
			res.ContentPath = g.Store.Path(key)
			return &res, nil
		}
		// Object without usable metadata, rebuild it.
		if err := g.Store.RemovePath(g.Store.Path(key)); err != nil {
			return nil, &SourceError{Source: req.URL, Operation: "fetch", Err: err}
		}
	}

	staged, err := g.Store.Stage()
	if err != nil {
		return nil, &SourceError{Source: req.URL, Operation: "fetch", Err: err}
	}

	res, err := checkout(ctx, staged, req)
	if err != nil {
		_ = os.RemoveAll(staged)
		return nil, &SourceError{Source: req.URL, Operation: "fetch", Err: err, Hint: "check repo access and commit SHA"}
	}

	path, err := g.Store.Commit(staged, key)
	if err != nil {
		return nil, &SourceError{Source: req.URL, Operation: "fetch", Err: err}
	}
	res.ContentPath = path

	if err := g.Store.WriteMeta(key, res); err != nil {
		return nil, &SourceError{Source: req.URL, Operation: "fetch", Err: err}
	}
	return res, nil
}

// Cleanup removes a fetched tree from the store.
func (g *GitFetcher) Cleanup(_ context.Context, contentPath string) error {
	return g.Store.RemovePath(contentPath)
}

func checkout(ctx context.Context, dir string, req FetchRequest) (*FetchResult, error) {
	repo, err := gitlib.PlainCloneContext(ctx, dir, false, &gitlib.CloneOptions{
		URL:        req.URL,
		NoCheckout: true,
	})
	if err != nil {
		return nil, fmt.Errorf("git clone failed: %w", err)
	}

	hash, err := resolveRevision(repo, req.Revision)
	if err != nil {
		return nil, err
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", hash, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.Checkout(&gitlib.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return nil, fmt.Errorf("checking out %s: %w", hash, err)
	}

	if req.FetchSubmodules {
		subs, err := wt.Submodules()
		if err != nil {
			return nil, fmt.Errorf("listing submodules: %w", err)
		}
		if err := subs.UpdateContext(ctx, &gitlib.SubmoduleUpdateOptions{
			Init:              true,
			RecurseSubmodules: gitlib.DefaultSubmoduleRecursionDepth,
		}); err != nil {
			return nil, fmt.Errorf("updating submodules: %w", err)
		}
	}

	if err := stripGitDirs(dir); err != nil {
		return nil, err
	}

	contentHash, err := store.HashTree(dir)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Commit:      hash.String(),
		ContentHash: contentHash,
		Timestamp:   uint64(commit.Committer.When.Unix()),
	}, nil
}

func resolveRevision(repo *gitlib.Repository, rev string) (plumbing.Hash, error) {
	if IsCommitID(rev) {
		return plumbing.NewHash(strings.ToLower(rev)), nil
	}

	h, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		// A clone keeps remote branches under refs/remotes/origin.
		if branch, ok := strings.CutPrefix(rev, "refs/heads/"); ok {
			h, err = repo.ResolveRevision(plumbing.Revision("refs/remotes/origin/" + branch))
		}
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrRevNotFound, rev)
	}
	return *h, nil
}

func stripGitDirs(root string) error {
	var gitPaths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() == ".git" && path != root {
			gitPaths = append(gitPaths, path)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}
	for _, p := range gitPaths {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}
