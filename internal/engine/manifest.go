package engine

import (
	"path/filepath"

	"github.com/bianoble/repolock/internal/config"
	"github.com/bianoble/repolock/internal/manifest"
)

// ResolveManifest reads the manifest tree described by cfg, relative to
// dir when its root is relative, and resolves it.
func ResolveManifest(dir string, cfg config.Manifest) (*manifest.Manifest, error) {
	root := cfg.Root
	if !filepath.IsAbs(root) {
		root = filepath.Join(dir, root)
	}
	frag, err := manifest.ReadWithLocal(root, cfg.File, cfg.LocalManifests)
	if err != nil {
		return nil, err
	}
	return manifest.Resolve(frag, cfg.URL)
}
