package config

import (
	"fmt"
	"maps"
	"slices"
)

// Merge combines two configs where overlay takes precedence over base.
// This implements the hierarchical merge semantics:
//   - version: must agree if both declare it (non-zero); fatal error on mismatch
//   - scalar fields: overlay wins when set
//   - lists (local manifests, device files, allow, block): overlay replaces base when non-empty
//   - branch_remap: deep merge, overlay keys win
//   - booleans: true in either layer is true
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := clone(base)

	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}

	mergeString(&result.Manifest.Root, overlay.Manifest.Root)
	mergeString(&result.Manifest.File, overlay.Manifest.File)
	mergeString(&result.Manifest.URL, overlay.Manifest.URL)
	mergeList(&result.Manifest.LocalManifests, overlay.Manifest.LocalManifests)
	mergeString(&result.Lockfile, overlay.Lockfile)

	mergeList(&result.Devices.Files, overlay.Devices.Files)
	mergeString(&result.Devices.Branch, overlay.Devices.Branch)
	mergeList(&result.Devices.Allow, overlay.Devices.Allow)
	mergeList(&result.Devices.Block, overlay.Devices.Block)
	mergeString(&result.Devices.GroupPrefix, overlay.Devices.GroupPrefix)

	mergeString(&result.Discovery.DependenciesFile, overlay.Discovery.DependenciesFile)
	mergeString(&result.Discovery.VendorPrefix, overlay.Discovery.VendorPrefix)
	mergeString(&result.Discovery.OrgPrefix, overlay.Discovery.OrgPrefix)
	result.Discovery.BranchRemap = mergeRemap(base.Discovery.BranchRemap, overlay.Discovery.BranchRemap)
	result.Discovery.KeepMissingBranches = base.Discovery.KeepMissingBranches || overlay.Discovery.KeepMissingBranches

	mergeString(&result.Fetch.Fetcher, overlay.Fetch.Fetcher)
	mergeString(&result.Fetch.Resolver, overlay.Fetch.Resolver)
	mergeString(&result.Fetch.StoreDir, overlay.Fetch.StoreDir)
	result.Fetch.Cleanup = base.Fetch.Cleanup || overlay.Fetch.Cleanup

	return result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
// Returns an error if any version mismatch is found.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0 && overlay == 0:
		*out = 0 // neither declares; validation will catch this
	case base == 0:
		*out = overlay
	case overlay == 0:
		*out = base
	case base == overlay:
		*out = base
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d, all config layers must agree on version", base, overlay)
	}
	return nil
}

func mergeString(dst *string, overlay string) {
	if overlay != "" {
		*dst = overlay
	}
}

func mergeList(dst *[]string, overlay []string) {
	if len(overlay) > 0 {
		*dst = slices.Clone(overlay)
	}
}

func mergeRemap(base, overlay map[string]string) map[string]string {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}

	result := make(map[string]string, len(base)+len(overlay))
	maps.Copy(result, base)
	maps.Copy(result, overlay) // overlay wins
	return result
}

func clone(cfg *Config) *Config {
	out := *cfg
	out.Manifest.LocalManifests = slices.Clone(cfg.Manifest.LocalManifests)
	out.Devices.Files = slices.Clone(cfg.Devices.Files)
	out.Devices.Allow = slices.Clone(cfg.Devices.Allow)
	out.Devices.Block = slices.Clone(cfg.Devices.Block)
	out.Discovery.BranchRemap = maps.Clone(cfg.Discovery.BranchRemap)
	return &out
}
