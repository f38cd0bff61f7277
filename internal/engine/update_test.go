package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bianoble/repolock/internal/manifest"
	"github.com/bianoble/repolock/internal/source"
)

func TestUpdateFullRun(t *testing.T) {
	dir, cfg := workspace(t)
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}

	result, err := eng.Update(context.Background(), UpdateOptions{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	want := "build/make,device/oneplus/bacon,kernel/oneplus/msm8974,vendor/lineage"
	if got := strings.Join(result.Diff.Added, ","); got != want {
		t.Errorf("added = %s, want %s", got, want)
	}
	if result.Discovery == nil || strings.Join(result.Discovery.Discovered, ",") != "kernel/oneplus/msm8974" {
		t.Errorf("discovery = %+v", result.Discovery)
	}
	// Discovery pins the device and its kernel, UpdateAll pins the rest.
	if got := strings.Join(result.Pins.Updated, ","); got != "build/make,vendor/lineage" {
		t.Errorf("updated = %s", got)
	}

	lf, completed := loadLock(t, filepath.Join(dir, "repolock.lock"))
	if !completed {
		t.Error("lockfile not marked completed")
	}
	for p, e := range lf.Entries {
		if e.Lock == nil {
			t.Errorf("%s not pinned", p)
		}
	}
	kernel := lf.Entries["kernel/oneplus/msm8974"]
	if !kernel.Project.Categories.Equal(manifest.NewCategories(manifest.DeviceCategory("bacon"))) {
		t.Errorf("kernel categories = %v", kernel.Project.Categories)
	}
	if kernel.Project.RepoRef.RepoURL != kernelURL {
		t.Errorf("kernel url = %q", kernel.Project.RepoRef.RepoURL)
	}
	if !lf.Entries["build/make"].Project.Categories.OnlyDefault() {
		t.Errorf("build/make categories = %v", lf.Entries["build/make"].Project.Categories)
	}
}

func TestUpdateCleanupReleasesNewPins(t *testing.T) {
	dir, cfg := workspace(t)
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}

	if _, err := eng.Update(context.Background(), UpdateOptions{Cleanup: true}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Content pinned during discovery is kept; projects pinned afterwards
	// are released once each.
	lf, _ := loadLock(t, filepath.Join(dir, "repolock.lock"))
	want := lf.Entries["build/make"].Lock.ContentPath + "," + lf.Entries["vendor/lineage"].Lock.ContentPath
	if got := strings.Join(h.cleaned, ","); got != want {
		t.Errorf("cleaned = %s, want %s", got, want)
	}

	h.cleaned = nil
	if _, err := eng.Update(context.Background(), UpdateOptions{Cleanup: true}); err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if len(h.cleaned) != 0 {
		t.Errorf("reused pins were released: %v", h.cleaned)
	}
}

func TestUpdateCleanupFromConfig(t *testing.T) {
	dir, cfg := workspace(t)
	cfg.Fetch.Cleanup = true
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}

	if _, err := eng.Update(context.Background(), UpdateOptions{SkipDiscovery: true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(h.cleaned) != 2 {
		t.Errorf("cleaned = %v, want 2 paths", h.cleaned)
	}
}

// fetchOnly hides the Cleanup method of a fetcher.
type fetchOnly struct{ source.Fetcher }

func TestUpdateCleanupNeedsCleaner(t *testing.T) {
	dir, cfg := workspace(t)
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: fetchOnly{h}, Refs: h}

	_, err := eng.Update(context.Background(), UpdateOptions{Cleanup: true})
	if err == nil || !strings.Contains(err.Error(), "cannot release") {
		t.Fatalf("err = %v, want cleaner error", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "repolock.lock")); !os.IsNotExist(statErr) {
		t.Error("lockfile written despite configuration error")
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	dir, cfg := workspace(t)
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}

	if _, err := eng.Update(context.Background(), UpdateOptions{}); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(filepath.Join(dir, "repolock.lock"))
	if err != nil {
		t.Fatal(err)
	}
	fetches := h.fetches

	result, err := eng.Update(context.Background(), UpdateOptions{})
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if !result.Diff.Empty() {
		t.Errorf("second run changed the lockfile: %+v", result.Diff)
	}
	if h.fetches != fetches {
		t.Errorf("second run fetched %d times", h.fetches-fetches)
	}
	second, _ := os.ReadFile(filepath.Join(dir, "repolock.lock"))
	if string(first) != string(second) {
		t.Error("lockfile bytes changed on a no-op update")
	}
}

func TestUpdateDryRun(t *testing.T) {
	dir, cfg := workspace(t)
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}

	result, err := eng.Update(context.Background(), UpdateOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if h.fetches != 0 {
		t.Errorf("dry run fetched %d times", h.fetches)
	}
	if _, err := os.Stat(filepath.Join(dir, "repolock.lock")); !os.IsNotExist(err) {
		t.Error("dry run wrote the lockfile")
	}
	if strings.Join(result.Diff.Added, ",") != "build/make,vendor/lineage" {
		t.Errorf("added = %v", result.Diff.Added)
	}
	if !strings.Contains(result.Preview, "+++ b/repolock.lock") || !strings.Contains(result.Preview, `+    "build/make": {`) {
		t.Errorf("preview:\n%s", result.Preview)
	}
}

func TestUpdateDeactivatesRemovedProjects(t *testing.T) {
	dir, cfg := workspace(t)
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}
	if _, err := eng.Update(context.Background(), UpdateOptions{}); err != nil {
		t.Fatal(err)
	}

	writeFile(t, dir, "android/snippets/lineage.xml", "<manifest></manifest>")
	result, err := eng.Update(context.Background(), UpdateOptions{SkipDiscovery: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.Discovery != nil {
		t.Error("discovery ran with SkipDiscovery")
	}

	lf, _ := loadLock(t, filepath.Join(dir, "repolock.lock"))
	if lf.Entries["vendor/lineage"].Project.Active {
		t.Error("vendor/lineage should be inactive")
	}
	// Device projects are only kept active by discovery.
	if lf.Entries["device/oneplus/bacon"].Project.Active {
		t.Error("device/oneplus/bacon should be inactive without discovery")
	}
	if !lf.Entries["build/make"].Project.Active {
		t.Error("build/make should stay active")
	}
	if lf.Entries["vendor/lineage"].Lock == nil {
		t.Error("inactive entries keep their pin")
	}
}

func TestUpdateDropBroken(t *testing.T) {
	dir, cfg := workspace(t)
	h := lineageHost(t)
	delete(h.repos, vendorURL)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}

	if _, err := eng.Update(context.Background(), UpdateOptions{}); err == nil {
		t.Fatal("expected error for a missing revision")
	}

	result, err := eng.Update(context.Background(), UpdateOptions{DropBroken: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if strings.Join(result.Pins.Broken, ",") != "vendor/lineage" {
		t.Errorf("broken = %v", result.Pins.Broken)
	}
	lf, _ := loadLock(t, filepath.Join(dir, "repolock.lock"))
	if _, ok := lf.Entries["vendor/lineage"]; ok {
		t.Error("broken project kept in lockfile")
	}
}

func TestUpdateGroupTagging(t *testing.T) {
	dir, cfg := workspace(t)
	writeFile(t, dir, "android/snippets/lineage.xml",
		`<manifest><project name="LineageOS/android_vendor_lineage" path="vendor/lineage" groups="device_bacon" /></manifest>`)
	cfg.Devices.GroupPrefix = "device_"
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}

	result, err := eng.Update(context.Background(), UpdateOptions{SkipDiscovery: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if strings.Join(result.Tagged, ",") != "vendor/lineage" {
		t.Errorf("tagged = %v", result.Tagged)
	}
	lf, _ := loadLock(t, filepath.Join(dir, "repolock.lock"))
	if got := lf.Entries["vendor/lineage"].Project.Categories; !got.Equal(manifest.NewCategories(manifest.DeviceCategory("bacon"))) {
		t.Errorf("categories = %v", got)
	}
}

func TestUpdateSkipsDevicesWithoutBranch(t *testing.T) {
	dir, cfg := workspace(t)
	cfg.Devices.Branch = "lineage-20.0"
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}

	result, err := eng.Update(context.Background(), UpdateOptions{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if strings.Join(result.SkippedDevices, ",") != "bacon" {
		t.Errorf("skipped = %v", result.SkippedDevices)
	}
	if len(result.Discovery.Visited) != 0 {
		t.Errorf("visited = %v", result.Discovery.Visited)
	}
}

func TestUpdateManifestError(t *testing.T) {
	dir, cfg := workspace(t)
	cfg.Manifest.File = "missing.xml"
	h := lineageHost(t)
	eng := &UpdateEngine{Config: cfg, Dir: dir, Fetcher: h, Refs: h}

	_, err := eng.Update(context.Background(), UpdateOptions{})
	if !manifest.IsKind(err, manifest.KindReadFile) {
		t.Errorf("err = %v, want ReadFile", err)
	}
}
