package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// NixPrefetchGit fetches repositories into the nix store with
// nix-prefetch-git.
type NixPrefetchGit struct {
	// Command overrides the nix-prefetch-git executable.
	Command string
	// StoreCommand overrides the nix-store executable used by Cleanup.
	StoreCommand string
}

type prefetchOutput struct {
	URL             string          `json:"url"`
	Rev             string          `json:"rev"`
	Date            json.RawMessage `json:"date"`
	Path            string          `json:"path"`
	SHA256          string          `json:"sha256"`
	Hash            string          `json:"hash"`
	FetchLFS        bool            `json:"fetchLFS"`
	FetchSubmodules bool            `json:"fetchSubmodules"`
}

func (n *NixPrefetchGit) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	args := []string{"--url", req.URL, "--rev", req.Revision}
	if req.FetchLFS {
		args = append(args, "--fetch-lfs")
	}
	if req.FetchSubmodules {
		args = append(args, "--fetch-submodules")
	}

	stdout, err := run(ctx, orDefault(n.Command, "nix-prefetch-git"), args...)
	if err != nil {
		return nil, &SourceError{Source: req.URL, Operation: "nix-prefetch-git", Err: err, Hint: "check the URL and that nix is installed"}
	}

	var out prefetchOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, &SourceError{Source: req.URL, Operation: "nix-prefetch-git", Err: fmt.Errorf("parsing output: %w", err)}
	}
	ts, err := parseDate(out.Date)
	if err != nil {
		return nil, &SourceError{Source: req.URL, Operation: "nix-prefetch-git", Err: err}
	}

	hash := out.Hash
	if hash == "" {
		hash = out.SHA256
	}
	return &FetchResult{
		Commit:      out.Rev,
		ContentHash: hash,
		ContentPath: out.Path,
		Timestamp:   ts,
	}, nil
}

// Cleanup deletes a store path with nix-store --delete. Paths still
// referenced by a GC root are left alone by nix and reported as an error.
func (n *NixPrefetchGit) Cleanup(ctx context.Context, contentPath string) error {
	if _, err := run(ctx, orDefault(n.StoreCommand, "nix-store"), "--delete", contentPath); err != nil {
		return &SourceError{Source: contentPath, Operation: "nix-store --delete", Err: err}
	}
	return nil
}

// parseDate accepts both the numeric and the ISO 8601 date fields emitted by
// different nix-prefetch-git versions.
func parseDate(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("parsing date %s: %w", raw, err)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return uint64(t.Unix()), nil
}

// run executes a command with terminal prompts disabled and returns stdout.
// stderr is folded into the error.
func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
