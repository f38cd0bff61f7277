package repolock

import "github.com/bianoble/repolock/internal/engine"

// Type aliases re-export engine types as the public API.
// Users import "github.com/bianoble/repolock/pkg/repolock" and use
// repolock.UpdateResult, repolock.VerifyResult, etc.

type UpdateOptions = engine.UpdateOptions
type PruneOptions = engine.PruneOptions
type UpdateResult = engine.UpdateResult
type ProjectStatus = engine.ProjectStatus
type ProjectDelta = engine.ProjectDelta
type ProjectError = engine.ProjectError
type VerifyResult = engine.VerifyResult
type PruneResult = engine.PruneResult
