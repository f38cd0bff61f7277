package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
)

// GitLsRemote resolves refs by running git ls-remote.
type GitLsRemote struct {
	// Command overrides the git executable.
	Command string
}

func (g *GitLsRemote) ResolveRef(ctx context.Context, url, ref string) (string, error) {
	out, err := run(ctx, orDefault(g.Command, "git"), "ls-remote", url)
	if err != nil {
		return "", &SourceError{Source: url, Operation: "ls-remote", Err: err, Hint: "check repo URL and authentication"}
	}
	commit, err := parseLsRemote(out, ref)
	if err != nil {
		return "", &SourceError{Source: url, Operation: "ls-remote", Err: err}
	}
	return commit, nil
}

// parseLsRemote finds ref in git ls-remote output. Candidate names are
// tried in the order given by refCandidates; for annotated tags the peeled
// "^{}" line wins so the result is a commit.
func parseLsRemote(out []byte, ref string) (string, error) {
	refs := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		commit, name, ok := strings.Cut(line, "\t")
		if !ok {
			return "", fmt.Errorf("unexpected ls-remote line %q", line)
		}
		refs[name] = commit
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading ls-remote output: %w", err)
	}

	for _, name := range refCandidates(ref) {
		if commit, ok := refs[name+"^{}"]; ok {
			return commit, nil
		}
		if commit, ok := refs[name]; ok {
			return commit, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrRevNotFound, ref)
}

// refCandidates lists the full ref names a revision may denote: the name
// itself, then a branch, then a tag. Names under refs/ are taken verbatim.
func refCandidates(ref string) []string {
	if strings.HasPrefix(ref, "refs/") {
		return []string{ref}
	}
	return []string{ref, "refs/heads/" + ref, "refs/tags/" + ref}
}
