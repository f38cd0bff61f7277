package lock

import (
	"log/slog"

	"github.com/bianoble/repolock/internal/manifest"
	"github.com/bianoble/repolock/internal/source"
)

// Lock pins a project to one fetched commit.
type Lock struct {
	Commit      string `json:"commit"`
	ContentHash string `json:"content_hash"`
	ContentPath string `json:"content_path"`
	Timestamp   uint64 `json:"timestamp"`
}

// Entry is one project of a lockset together with its pin. Lock is nil
// until the project has been pinned.
type Entry struct {
	Project manifest.Project `json:"project"`
	Lock    *Lock            `json:"lock"`
}

func (e *Entry) clone() *Entry {
	out := &Entry{Project: e.Project.Clone()}
	if e.Lock != nil {
		l := *e.Lock
		out.Lock = &l
	}
	return out
}

// Lockfile is the on-disk form of a lockset. Completed is false while a pin
// update pass is still in progress.
type Lockfile struct {
	Completed bool              `json:"completed"`
	Entries   map[string]*Entry `json:"entries"`
}

// Options carries the collaborators a lockset needs to pin projects.
type Options struct {
	Fetcher source.Fetcher
	Refs    source.RefResolver
	Logger  *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}
