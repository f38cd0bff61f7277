package discovery

import (
	"github.com/bianoble/repolock/internal/lock"
	"github.com/bianoble/repolock/internal/manifest"
)

// Propagate adds the device categories of every root to all projects
// reachable from it through discovered dependencies. Categories are only
// ever added. Each root's walk visits a project once, so cyclic
// dependencies terminate.
func Propagate(ls *lock.Lockset, roots []string) {
	for _, root := range roots {
		e, ok := ls.Get(root)
		if !ok {
			continue
		}
		cats := e.Project.Categories.DeviceSpecific()
		if len(cats) == 0 {
			continue
		}

		visited := map[string]bool{root: true}
		queue := []string{root}
		for i := 0; i < len(queue); i++ {
			e, ok := ls.Get(queue[i])
			if !ok {
				continue
			}
			e.Project.Categories = e.Project.Categories.Union(cats)
			if !e.Project.LineageDeps.Is(manifest.DepsSome) {
				continue
			}
			for _, dep := range e.Project.LineageDeps.Paths {
				if !visited[dep] {
					visited[dep] = true
					queue = append(queue, dep)
				}
			}
		}
	}
}

// RemoveMissingBranches drops every project whose revision was found
// missing at its remote and returns the removed paths.
func RemoveMissingBranches(ls *lock.Lockset) []string {
	var removed []string
	for _, p := range ls.SortedPaths() {
		e, _ := ls.Get(p)
		if e.Project.LineageDeps.Is(manifest.DepsMissingBranch) {
			ls.Remove(p)
			removed = append(removed, p)
		}
	}
	return removed
}
