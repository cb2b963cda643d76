package tool

import "sync"

// Grant is a sticky per-session permission decision for one tool.
type Grant string

// Grant values. A grant is set the first time the user answers "always" for
// a tool and is consulted before the permission handler on every later
// invocation of that tool.
const (
	GrantAlwaysAllow Grant = "always_allow"
	GrantAlwaysDeny  Grant = "always_deny"
)

// Grants is the per-session sticky decision store. Its lifetime is one
// conversation session; it is persisted with the session so a resumed
// conversation keeps prior grants. Mutation happens only on the registry's
// single-threaded resolution path and through the interactive handler, but
// the store locks anyway so snapshots taken for persistence are consistent.
type Grants struct {
	mu     sync.Mutex
	byTool map[string]Grant
}

// NewGrants creates an empty grant store.
func NewGrants() *Grants {
	return &Grants{byTool: make(map[string]Grant)}
}

// Get returns the sticky grant for a tool, if one exists.
func (g *Grants) Get(toolName string) (Grant, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	grant, ok := g.byTool[toolName]
	return grant, ok
}

// Set records a sticky grant for a tool, replacing any prior grant.
func (g *Grants) Set(toolName string, grant Grant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byTool[toolName] = grant
}

// Clear removes all sticky grants.
func (g *Grants) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byTool = make(map[string]Grant)
}

// Snapshot returns a copy of the grant map for persistence.
func (g *Grants) Snapshot() map[string]Grant {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]Grant, len(g.byTool))
	for name, grant := range g.byTool {
		out[name] = grant
	}
	return out
}

// Restore replaces the store contents with a persisted snapshot.
func (g *Grants) Restore(snapshot map[string]Grant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byTool = make(map[string]Grant, len(snapshot))
	for name, grant := range snapshot {
		g.byTool[name] = grant
	}
}

// Len returns the number of recorded grants.
func (g *Grants) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.byTool)
}
