package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestMergeScalarsOverlayWins(t *testing.T) {
	base := &Config{
		Version:  1,
		Manifest: Manifest{Root: "android", File: "default.xml", URL: "https://base/m"},
		Lockfile: "base.lock",
		Fetch:    Fetch{Fetcher: FetcherNix, Resolver: ResolverCLI},
	}
	overlay := &Config{
		Manifest: Manifest{URL: "https://overlay/m"},
		Fetch:    Fetch{Resolver: ResolverNative},
	}

	merged, err := Merge(base, overlay)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Version != 1 {
		t.Errorf("version = %d, want 1", merged.Version)
	}
	if merged.Manifest.Root != "android" || merged.Manifest.File != "default.xml" {
		t.Errorf("manifest = %+v, base values should survive", merged.Manifest)
	}
	if merged.Manifest.URL != "https://overlay/m" {
		t.Errorf("url = %q, want %q (overlay should win)", merged.Manifest.URL, "https://overlay/m")
	}
	if merged.Lockfile != "base.lock" {
		t.Errorf("lockfile = %q, want base.lock", merged.Lockfile)
	}
	if merged.Fetch.Fetcher != FetcherNix || merged.Fetch.Resolver != ResolverNative {
		t.Errorf("fetch = %+v", merged.Fetch)
	}
}

func TestMergeListsReplace(t *testing.T) {
	base := &Config{Devices: Devices{Files: []string{"a.json", "b.json"}, Block: []string{"bacon"}}}
	overlay := &Config{Devices: Devices{Files: []string{"c.json"}}}

	merged, err := Merge(base, overlay)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if strings.Join(merged.Devices.Files, ",") != "c.json" {
		t.Errorf("files = %v, want [c.json]", merged.Devices.Files)
	}
	if strings.Join(merged.Devices.Block, ",") != "bacon" {
		t.Errorf("block = %v, want base list kept", merged.Devices.Block)
	}
}

func TestMergeBranchRemapDeepMerge(t *testing.T) {
	base := &Config{Discovery: Discovery{BranchRemap: map[string]string{"lineage-21.0": "lineage-21", "a": "b"}}}
	overlay := &Config{Discovery: Discovery{BranchRemap: map[string]string{"a": "c", "lineage-22.1": "lineage-22"}}}

	merged, err := Merge(base, overlay)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := map[string]string{"lineage-21.0": "lineage-21", "a": "c", "lineage-22.1": "lineage-22"}
	if len(merged.Discovery.BranchRemap) != len(want) {
		t.Fatalf("remap = %v, want %v", merged.Discovery.BranchRemap, want)
	}
	for k, v := range want {
		if merged.Discovery.BranchRemap[k] != v {
			t.Errorf("remap[%s] = %q, want %q", k, merged.Discovery.BranchRemap[k], v)
		}
	}
	if base.Discovery.BranchRemap["a"] != "b" {
		t.Error("Merge modified the base remap")
	}
}

func TestMergeBooleans(t *testing.T) {
	merged, err := Merge(&Config{Fetch: Fetch{Cleanup: true}}, &Config{Discovery: Discovery{KeepMissingBranches: true}})
	if err != nil {
		t.Fatal(err)
	}
	if !merged.Fetch.Cleanup || !merged.Discovery.KeepMissingBranches {
		t.Errorf("merged = %+v", merged)
	}
}

func TestMergeVersionMismatch(t *testing.T) {
	_, err := Merge(&Config{Version: 1}, &Config{Version: 2})
	if err == nil || !strings.Contains(err.Error(), "version mismatch") {
		t.Errorf("err = %v, want version mismatch", err)
	}
}

func TestMergeNilBase(t *testing.T) {
	overlay := &Config{Version: 1}
	merged, err := Merge(nil, overlay)
	if err != nil {
		t.Fatal(err)
	}
	if merged != overlay {
		t.Error("nil base should return overlay")
	}
}

func TestMergeNilOverlay(t *testing.T) {
	base := &Config{Version: 1}
	merged, err := Merge(base, nil)
	if err != nil {
		t.Fatal(err)
	}
	if merged != base {
		t.Error("nil overlay should return base")
	}
}

func TestMergeAllThreeLayers(t *testing.T) {
	system := &Config{Version: 1, Fetch: Fetch{Fetcher: FetcherGit, StoreDir: "/var/cache/repolock"}}
	user := &Config{Fetch: Fetch{StoreDir: "/home/alice/.cache/repolock"}}
	project := &Config{Version: 1, Manifest: Manifest{File: "default.xml", URL: "https://github.com/LineageOS/android/"}}

	merged, err := MergeAll([]*Config{system, user, project})
	if err != nil {
		t.Fatalf("MergeAll: %v", err)
	}
	if merged.Fetch.Fetcher != FetcherGit {
		t.Errorf("fetcher = %q, want git from system layer", merged.Fetch.Fetcher)
	}
	if merged.Fetch.StoreDir != "/home/alice/.cache/repolock" {
		t.Errorf("store_dir = %q, want user layer value", merged.Fetch.StoreDir)
	}
	if merged.Manifest.URL == "" {
		t.Error("project manifest lost")
	}
}

func TestMergeAllEmpty(t *testing.T) {
	_, err := MergeAll(nil)
	if err == nil {
		t.Fatal("expected error for empty configs")
	}
}

func TestLoadHierarchicalNoInherit(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "repolock.yaml", exampleConfig)
	sysPath := writeConfig(t, dir, "system.yaml", "fetch:\n  cleanup: true\n")

	result, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      path,
		SystemConfigPath: sysPath,
		NoInherit:        true,
	})
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}
	if len(result.Layers) != 1 {
		t.Errorf("expected 1 layer with NoInherit, got %d", len(result.Layers))
	}
	if result.Layers[0].Level != LevelProject {
		t.Errorf("layer.Level = %q, want %q", result.Layers[0].Level, LevelProject)
	}
	if result.Config.Fetch.Cleanup {
		t.Error("system layer should not be inherited")
	}
}

func TestLoadHierarchicalEnvNoInherit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REPOLOCK_NO_INHERIT", "1")

	result, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      writeConfig(t, dir, "repolock.yaml", exampleConfig),
		SystemConfigPath: writeConfig(t, dir, "system.yaml", "fetch:\n  cleanup: true\n"),
	})
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}
	if len(result.Layers) != 1 || result.Config.Fetch.Cleanup {
		t.Errorf("layers = %+v, cleanup = %v", result.Layers, result.Config.Fetch.Cleanup)
	}
}

func TestLoadHierarchicalMergesLayers(t *testing.T) {
	dir := t.TempDir()
	sysPath := writeConfig(t, dir, "system.yaml", `
version: 1
fetch:
  cleanup: true
discovery:
  branch_remap:
    lineage-22.1: lineage-22
`)
	projPath := writeConfig(t, dir, "repolock.yaml", exampleConfig)

	result, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      projPath,
		SystemConfigPath: sysPath,
		UserConfigPath:   filepath.Join(dir, "nonexistent", "repolock.yaml"),
	})
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}

	cfg := result.Config
	if !cfg.Fetch.Cleanup {
		t.Error("cleanup from system layer lost")
	}
	if cfg.Discovery.BranchRemap["lineage-22.1"] != "lineage-22" || cfg.Discovery.BranchRemap["lineage-21.0"] != "lineage-21" {
		t.Errorf("branch remap = %v", cfg.Discovery.BranchRemap)
	}
	if cfg.Fetch.Fetcher != FetcherGit {
		t.Errorf("fetcher = %q, want git", cfg.Fetch.Fetcher)
	}

	loaded := 0
	for _, l := range result.Layers {
		if l.Loaded {
			loaded++
		}
	}
	if len(result.Layers) != 3 || loaded != 2 {
		t.Errorf("layers = %+v, want 3 with 2 loaded", result.Layers)
	}
}

func TestLoadHierarchicalMissingProjectConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      filepath.Join(dir, "repolock.yaml"),
		SystemConfigPath: filepath.Join(dir, "none.yaml"),
		UserConfigPath:   filepath.Join(dir, "none2.yaml"),
	})
	if err == nil {
		t.Fatal("expected error for missing project config")
	}
}

func TestLoadHierarchicalVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      writeConfig(t, dir, "project.yaml", exampleConfig),
		SystemConfigPath: writeConfig(t, dir, "system.yaml", "version: 2\n"),
		UserConfigPath:   filepath.Join(dir, "nonexistent.yaml"),
	})
	if err == nil || !strings.Contains(err.Error(), "version mismatch") {
		t.Errorf("err = %v, want version mismatch", err)
	}
}

func TestLoadHierarchicalParseError(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      writeConfig(t, dir, "project.yaml", exampleConfig),
		SystemConfigPath: writeConfig(t, dir, "system.yaml", "invalid: [yaml: broken"),
		UserConfigPath:   filepath.Join(dir, "nonexistent.yaml"),
	})
	if err == nil {
		t.Fatal("expected parse error for invalid system config")
	}
}

func TestLoadHierarchicalValidatesMergedConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      writeConfig(t, dir, "project.yaml", exampleConfig),
		SystemConfigPath: writeConfig(t, dir, "system.yaml", "fetch:\n  resolver: http\n"),
		UserConfigPath:   writeConfig(t, dir, "user.yaml", "fetch:\n  resolver: ''\n"),
	})
	// The project layer sets resolver: native, so the merged config is valid.
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}

	_, err = LoadHierarchical(HierarchicalOptions{
		ProjectPath:      writeConfig(t, dir, "bare.yaml", "version: 1\nmanifest:\n  url: https://x/m\n"),
		SystemConfigPath: writeConfig(t, dir, "system2.yaml", "fetch:\n  resolver: http\n"),
		UserConfigPath:   filepath.Join(dir, "nonexistent.yaml"),
	})
	if err == nil || !strings.Contains(err.Error(), "unknown resolver 'http'") {
		t.Errorf("err = %v, want resolver validation error", err)
	}
}
