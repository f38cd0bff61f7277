package devices

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bianoble/repolock/internal/discovery"
	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/manifest"
	"gopkg.in/yaml.v3"
)

// Info describes one device and the repository branches that build it.
type Info struct {
	Name          string                         `yaml:"name" json:"name"`
	Vendor        string                         `yaml:"vendor" json:"vendor"`
	BuildType     string                         `yaml:"build_type" json:"build_type"`
	Branches      map[string]manifest.GitRepoRef `yaml:"branches" json:"branches"`
	DefaultBranch string                         `yaml:"default_branch" json:"default_branch"`
	Period        string                         `yaml:"period" json:"period"`
}

// Devices maps device names to their metadata.
type Devices map[string]*Info

// LoadFile reads a device metadata file, JSON when the name ends in .json
// and YAML otherwise.
func LoadFile(file string) (Devices, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &Error{Kind: KindReadFile, File: file, Err: err}
	}

	var devs Devices
	if strings.EqualFold(filepath.Ext(file), ".json") {
		err = json.Unmarshal(data, &devs)
	} else {
		err = yaml.Unmarshal(data, &devs)
	}
	if err != nil {
		return nil, &Error{Kind: KindParse, File: file, Err: err}
	}
	for name, d := range devs {
		if d == nil {
			return nil, &Error{Kind: KindParse, File: file, Device: name, Err: fmt.Errorf("empty device entry")}
		}
		if d.Name == "" {
			d.Name = name
		}
		if d.Name != name {
			return nil, &Error{Kind: KindParse, File: file, Device: name, Err: fmt.Errorf("entry is named '%s'", d.Name)}
		}
	}
	return devs, nil
}

// LoadFiles reads and merges several device metadata files in order.
func LoadFiles(files []string) (Devices, error) {
	all := make(Devices)
	for _, f := range files {
		devs, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		if err := Merge(all, devs); err != nil {
			var de *Error
			if errors.As(err, &de) {
				de.File = f
			}
			return nil, err
		}
	}
	return all, nil
}

// Merge adds the devices of src to dst. A device present in both must have
// the same metadata, and may not define the same branch twice.
func Merge(dst, src Devices) error {
	for _, name := range slices.Sorted(maps.Keys(src)) {
		d := src[name]
		cur, ok := dst[name]
		if !ok {
			cp := *d
			cp.Branches = maps.Clone(d.Branches)
			dst[name] = &cp
			continue
		}
		if cur.Name != d.Name || cur.Vendor != d.Vendor || cur.BuildType != d.BuildType ||
			cur.DefaultBranch != d.DefaultBranch || cur.Period != d.Period {
			return &Error{Kind: KindInconsistentDeviceInfo, Device: name}
		}
		for _, branch := range slices.Sorted(maps.Keys(d.Branches)) {
			if _, dup := cur.Branches[branch]; dup {
				return &Error{Kind: KindDuplicateBranch, Device: name, Branch: branch}
			}
			if cur.Branches == nil {
				cur.Branches = make(map[string]manifest.GitRepoRef)
			}
			cur.Branches[branch] = d.Branches[branch]
		}
	}
	return nil
}

// Filter keeps devices named in allow, or all when allow is empty, and
// drops those named in block.
func Filter(devs Devices, allow, block []string) Devices {
	out := make(Devices, len(devs))
	for name, d := range devs {
		if len(allow) > 0 && !slices.Contains(allow, name) {
			continue
		}
		if slices.Contains(block, name) {
			continue
		}
		out[name] = d
	}
	return out
}

// Seeds returns a project per device that has branch, ordered by device
// name, for use as discovery seeds. An empty branch selects each device's
// default branch. Branch names are looked up after remapping. The second
// result lists devices without a matching branch.
func Seeds(devs Devices, branch string, remap map[string]string) ([]manifest.Project, []string) {
	var seeds []manifest.Project
	var skipped []string
	for _, name := range slices.Sorted(maps.Keys(devs)) {
		d := devs[name]
		b := branch
		if b == "" {
			b = d.DefaultBranch
		}
		ref, ok := d.Branches[discovery.RemapBranch(remap, b)]
		if !ok {
			ref, ok = d.Branches[b]
		}
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		seeds = append(seeds, manifest.Project{
			Path:       path.Join("device", d.Vendor, d.Name),
			RepoRef:    ref,
			Categories: manifest.NewCategories(manifest.DeviceCategory(d.Name)),
			Active:     true,
		})
	}
	return seeds, skipped
}

// TagByGroup turns manifest groups into device categories: an active
// project still in the default category whose groups start with prefix is
// recategorized to the devices those groups name. It returns the paths of
// retagged projects.
func TagByGroup(ls *lock.Lockset, prefix string, log *slog.Logger) []string {
	if prefix == "" {
		return nil
	}
	var tagged []string
	for _, p := range ls.ActivePaths() {
		e, _ := ls.Get(p)
		if !e.Project.Categories.OnlyDefault() {
			continue
		}
		var cats []manifest.Category
		for _, g := range e.Project.Groups {
			if dev, ok := strings.CutPrefix(g, prefix); ok && dev != "" {
				cats = append(cats, manifest.DeviceCategory(dev))
			}
		}
		if len(cats) == 0 {
			continue
		}
		e.Project.Categories = manifest.NewCategories(cats...)
		tagged = append(tagged, p)
		if log != nil {
			log.Debug("tagged by group", slog.String("path", p), slog.Any("categories", e.Project.Categories))
		}
	}
	return tagged
}
