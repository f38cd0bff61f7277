package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/manifest"
)

// prunable runs a full update and then drops vendor/lineage from the
// manifest, leaving it inactive.
func prunable(t *testing.T) (string, *fakeHost) {
	t.Helper()
	dir, cfg := workspace(t)
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}
	if _, err := eng.Update(context.Background(), UpdateOptions{}); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "android/snippets/lineage.xml", "<manifest></manifest>")
	if _, err := eng.Update(context.Background(), UpdateOptions{}); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "repolock.lock"), h
}

func TestPruneRemovesInactiveEntries(t *testing.T) {
	lockPath, h := prunable(t)
	before, _ := loadLock(t, lockPath)
	vendorContent := before.Entries["vendor/lineage"].Lock.ContentPath

	result, err := (&PruneEngine{Cleaner: h}).Prune(context.Background(), lockPath, PruneOptions{})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if strings.Join(result.Removed, ",") != "vendor/lineage" {
		t.Errorf("removed = %v", result.Removed)
	}
	if len(result.Cleaned) != 1 || result.Cleaned[0] != vendorContent {
		t.Errorf("cleaned = %v, want [%s]", result.Cleaned, vendorContent)
	}
	if _, err := os.Stat(vendorContent); !os.IsNotExist(err) {
		t.Error("content of pruned project still present")
	}

	after, completed := loadLock(t, lockPath)
	if !completed {
		t.Error("prune lost the completed flag")
	}
	if _, ok := after.Entries["vendor/lineage"]; ok {
		t.Error("vendor/lineage still in lockfile")
	}
	if len(after.Entries) != 3 {
		t.Errorf("entries = %d, want 3", len(after.Entries))
	}
}

func TestPruneDryRun(t *testing.T) {
	lockPath, h := prunable(t)
	before, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatal(err)
	}

	result, err := (&PruneEngine{Cleaner: h}).Prune(context.Background(), lockPath, PruneOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(result.Removed) != 1 || len(result.Cleaned) != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(h.cleaned) != 0 {
		t.Errorf("dry run cleaned %v", h.cleaned)
	}
	after, _ := os.ReadFile(lockPath)
	if string(before) != string(after) {
		t.Error("dry run modified the lockfile")
	}
}

func TestPruneKeepsSharedContent(t *testing.T) {
	shared := t.TempDir()
	path := filepath.Join(t.TempDir(), "repolock.lock")
	ls := lock.New(nil, path, lock.Options{})
	for _, p := range []string{"old", "new"} {
		if err := ls.AddProject(manifest.Project{
			Path:       p,
			RepoRef:    manifest.GitRepoRef{RepoURL: "https://example.com/" + p, Revision: "refs/heads/main"},
			Categories: manifest.NewCategories(manifest.DefaultCategory),
			Active:     true,
		}); err != nil {
			t.Fatal(err)
		}
		e, _ := ls.Get(p)
		e.Lock = pin(commitOne, shared)
	}
	e, _ := ls.Get("old")
	e.Project.Active = false
	if err := ls.Save(false); err != nil {
		t.Fatal(err)
	}

	h := newFakeHost(t)
	result, err := (&PruneEngine{Cleaner: h}).Prune(context.Background(), path, PruneOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Removed) != 1 || len(result.Cleaned) != 0 || len(h.cleaned) != 0 {
		t.Errorf("result = %+v, cleaned = %v", result, h.cleaned)
	}
}

func TestPruneNothingToDo(t *testing.T) {
	dir, cfg := workspace(t)
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}
	if _, err := eng.Update(context.Background(), UpdateOptions{}); err != nil {
		t.Fatal(err)
	}

	result, err := (&PruneEngine{}).Prune(context.Background(), filepath.Join(dir, "repolock.lock"), PruneOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Removed) != 0 {
		t.Errorf("removed = %v", result.Removed)
	}
}

func TestPruneMissingLockfile(t *testing.T) {
	_, err := (&PruneEngine{}).Prune(context.Background(), filepath.Join(t.TempDir(), "none.lock"), PruneOptions{})
	if !lock.IsKind(err, lock.KindReadLockfile) {
		t.Errorf("err = %v, want ReadLockfile", err)
	}
}
