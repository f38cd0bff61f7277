package repolock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bianoble/repolock/internal/engine"
	"github.com/bianoble/repolock/internal/source"
)

const testManifest = `<manifest>
  <remote name="origin" fetch="https://example.com/org" revision="refs/heads/main" />
  <default remote="origin" />
  <project name="app" path="app" />
  <project name="lib" path="lib" />
</manifest>
`

// fakeUpstream resolves every ref to a fixed commit per repository and
// writes empty content dirs.
type fakeUpstream struct {
	dir     string
	commits map[string]string
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	return &fakeUpstream{dir: t.TempDir(), commits: map[string]string{
		"https://example.com/org/app": fmt.Sprintf("%040x", 1),
		"https://example.com/org/lib": fmt.Sprintf("%040x", 2),
	}}
}

func (f *fakeUpstream) ResolveRef(_ context.Context, url, ref string) (string, error) {
	c, ok := f.commits[url]
	if !ok {
		return "", fmt.Errorf("%w: %s", source.ErrRevNotFound, ref)
	}
	return c, nil
}

func (f *fakeUpstream) Fetch(_ context.Context, req source.FetchRequest) (*source.FetchResult, error) {
	dir := filepath.Join(f.dir, req.Revision)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &source.FetchResult{Commit: req.Revision, ContentHash: "sha256-" + req.Revision[:8], ContentPath: dir, Timestamp: 1}, nil
}

// writeProject writes a config and manifest and returns the config path.
func writeProject(t *testing.T, dir string) string {
	t.Helper()
	cfgPath := filepath.Join(dir, "repolock.yaml")
	content := `version: 1
manifest:
  file: default.xml
  url: https://example.com/org/manifest
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "default.xml"), []byte(testManifest), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

// newTestClient creates a client with isolated temp paths and a fake upstream.
func newTestClient(t *testing.T, dir, cfgPath string) (*Client, *fakeUpstream) {
	t.Helper()
	up := newFakeUpstream(t)
	client, err := New(Options{
		ConfigPath: cfgPath,
		NoInherit:  true,
		Fetcher:    up,
		Refs:       up,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, up
}

func TestNewDefaultProjectRoot(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeProject(t, dir)

	client, err := New(Options{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.projectRoot != dir {
		t.Errorf("projectRoot = %q, want %q", client.projectRoot, dir)
	}
	if client.logger == nil {
		t.Error("logger should default to a discard logger")
	}
}

func TestNewDefaultConfigPath(t *testing.T) {
	client, err := New(Options{ProjectRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.configPath != "repolock.yaml" {
		t.Errorf("configPath = %q, want 'repolock.yaml'", client.configPath)
	}
}

func TestClientResolve(t *testing.T) {
	dir := t.TempDir()
	client, _ := newTestClient(t, dir, writeProject(t, dir))

	m, err := client.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(m.Projects) != 2 {
		t.Errorf("got %d projects, want 2", len(m.Projects))
	}
}

func TestClientUpdateStatusVerify(t *testing.T) {
	dir := t.TempDir()
	client, _ := newTestClient(t, dir, writeProject(t, dir))
	ctx := context.Background()

	result, err := client.Update(ctx, UpdateOptions{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(result.Diff.Added) != 2 {
		t.Errorf("added = %v, want 2 projects", result.Diff.Added)
	}
	if _, err := os.Stat(filepath.Join(dir, "repolock.lock")); err != nil {
		t.Fatalf("lockfile not written next to config: %v", err)
	}

	statuses, err := client.Status(nil)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, s := range statuses {
		if s.State != engine.StateLocked {
			t.Errorf("%s: state = %q, want locked", s.Path, s.State)
		}
	}

	vr, err := client.Verify(ctx, nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !vr.Clean() || len(vr.UpToDate) != 2 {
		t.Errorf("verify = %+v, want 2 up to date", vr)
	}
}

func TestClientVerifyDetectsMovedRef(t *testing.T) {
	dir := t.TempDir()
	client, up := newTestClient(t, dir, writeProject(t, dir))
	ctx := context.Background()

	if _, err := client.Update(ctx, UpdateOptions{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	up.commits["https://example.com/org/lib"] = fmt.Sprintf("%040x", 9)

	vr, err := client.Verify(ctx, nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(vr.Changed) != 1 || vr.Changed[0].Path != "lib" {
		t.Errorf("changed = %+v, want lib", vr.Changed)
	}
}

func TestClientDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	client, _ := newTestClient(t, dir, writeProject(t, dir))

	result, err := client.Update(context.Background(), UpdateOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Preview == "" {
		t.Error("dry run should produce a preview")
	}
	if _, err := os.Stat(filepath.Join(dir, "repolock.lock")); !os.IsNotExist(err) {
		t.Errorf("dry run wrote a lockfile: %v", err)
	}
}

func TestClientPrune(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeProject(t, dir)
	client, _ := newTestClient(t, dir, cfgPath)
	ctx := context.Background()

	if _, err := client.Update(ctx, UpdateOptions{}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	smaller := `<manifest>
  <remote name="origin" fetch="https://example.com/org" revision="refs/heads/main" />
  <default remote="origin" />
  <project name="app" path="app" />
</manifest>
`
	if err := os.WriteFile(filepath.Join(dir, "default.xml"), []byte(smaller), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Update(ctx, UpdateOptions{}); err != nil {
		t.Fatalf("second Update: %v", err)
	}

	pr, err := client.Prune(ctx, PruneOptions{})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(pr.Removed) != 1 || pr.Removed[0] != "lib" {
		t.Errorf("removed = %v, want [lib]", pr.Removed)
	}
}

func TestClientMissingConfig(t *testing.T) {
	client, err := New(Options{ConfigPath: filepath.Join(t.TempDir(), "repolock.yaml"), NoInherit: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Update(context.Background(), UpdateOptions{}); err == nil {
		t.Error("expected error for missing config")
	}
}
