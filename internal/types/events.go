package types

import "time"

// Event is the common contract every published event satisfies. Event
// structs are immutable: every field is set by its constructor and never
// mutated afterward.
type Event interface {
	EventID() string
	OccurredAt() time.Time
	AggregateID() string
}

// FileIndexedEvent is published once per processed source file.
type FileIndexedEvent struct {
	id        string
	occurred  time.Time
	path      string
	symbols   []Symbol
	success   bool
}

// NewFileIndexedEvent constructs an immutable FileIndexedEvent.
func NewFileIndexedEvent(id string, occurred time.Time, path string, symbols []Symbol, success bool) FileIndexedEvent {
	return FileIndexedEvent{id: id, occurred: occurred, path: path, symbols: symbols, success: success}
}

func (e FileIndexedEvent) EventID() string       { return e.id }
func (e FileIndexedEvent) OccurredAt() time.Time { return e.occurred }
func (e FileIndexedEvent) AggregateID() string    { return e.path }
func (e FileIndexedEvent) Path() string           { return e.path }
func (e FileIndexedEvent) Symbols() []Symbol      { return e.symbols }
func (e FileIndexedEvent) Success() bool          { return e.success }

// WorkspaceIndexedEvent is published exactly once per initialize() call,
// after every write from that initialization has committed.
type WorkspaceIndexedEvent struct {
	id            string
	occurred      time.Time
	workspacePath string
	totalFiles    int
	totalSymbols  int
	durationMs    int64
}

// NewWorkspaceIndexedEvent constructs an immutable WorkspaceIndexedEvent.
func NewWorkspaceIndexedEvent(id string, occurred time.Time, workspacePath string, totalFiles, totalSymbols int, durationMs int64) WorkspaceIndexedEvent {
	return WorkspaceIndexedEvent{
		id: id, occurred: occurred, workspacePath: workspacePath,
		totalFiles: totalFiles, totalSymbols: totalSymbols, durationMs: durationMs,
	}
}

func (e WorkspaceIndexedEvent) EventID() string       { return e.id }
func (e WorkspaceIndexedEvent) OccurredAt() time.Time { return e.occurred }
func (e WorkspaceIndexedEvent) AggregateID() string    { return e.workspacePath }
func (e WorkspaceIndexedEvent) WorkspacePath() string  { return e.workspacePath }
func (e WorkspaceIndexedEvent) TotalFiles() int        { return e.totalFiles }
func (e WorkspaceIndexedEvent) TotalSymbols() int      { return e.totalSymbols }
func (e WorkspaceIndexedEvent) DurationMs() int64      { return e.durationMs }

// DependencyCacheInvalidatedEvent is published immediately before a build
// descriptor change triggers a full re-initialize, so subscribers that only
// care about cache invalidation don't need to diff two WorkspaceIndexedEvents.
type DependencyCacheInvalidatedEvent struct {
	id          string
	occurred    time.Time
	projectPath string
}

// NewDependencyCacheInvalidatedEvent constructs an immutable event.
func NewDependencyCacheInvalidatedEvent(id string, occurred time.Time, projectPath string) DependencyCacheInvalidatedEvent {
	return DependencyCacheInvalidatedEvent{id: id, occurred: occurred, projectPath: projectPath}
}

func (e DependencyCacheInvalidatedEvent) EventID() string       { return e.id }
func (e DependencyCacheInvalidatedEvent) OccurredAt() time.Time { return e.occurred }
func (e DependencyCacheInvalidatedEvent) AggregateID() string    { return e.projectPath }
func (e DependencyCacheInvalidatedEvent) ProjectPath() string    { return e.projectPath }
