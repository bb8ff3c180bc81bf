// Package view implements the restricted view: a capability-restricted
// wrapper over a QuadStore limited to a whitelist of named graphs,
// optionally read-only. Pipeline stages receive views, never the store
// itself, so each stage can read and write exactly the graphs it
// should.
package view

import (
	"github.com/robertmuil/pythinfer/internal/pyerr"
	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
)

// View is a capability-restricted handle onto a QuadStore: reads and
// writes are confined to the whitelist fixed at construction, and writes
// are rejected outright when the view is read-only.
type View struct {
	store    *quadstore.QuadStore
	graphs   map[string]bool
	readOnly bool
}

// New builds a View over store, restricted to graphs. If readOnly is
// true, every write call returns a ReadOnlyFailure.
func New(store *quadstore.QuadStore, graphs []string, readOnly bool) *View {
	set := make(map[string]bool, len(graphs))
	for _, g := range graphs {
		set[g] = true
	}
	return &View{store: store, graphs: set, readOnly: readOnly}
}

func (v *View) permitted(graph string) bool {
	return v.graphs[graph]
}

// Add writes one triple into graph. Fails with PermissionFailure if graph
// is not in the whitelist, or ReadOnlyFailure if the view is read-only.
func (v *View) Add(graph string, t *rdf.Triple) error {
	if v.readOnly {
		return pyerr.NewReadOnlyFailure(graph)
	}
	if !v.permitted(graph) {
		return pyerr.NewPermissionFailure(graph, "write")
	}
	return v.store.Add(graph, t)
}

// BulkAdd writes triples into graph under the same restrictions as Add.
func (v *View) BulkAdd(graph string, triples []*rdf.Triple) error {
	if v.readOnly {
		return pyerr.NewReadOnlyFailure(graph)
	}
	if !v.permitted(graph) {
		return pyerr.NewPermissionFailure(graph, "write")
	}
	return v.store.BulkAdd(graph, triples)
}

// Remove deletes one triple from graph under the same restrictions as Add.
func (v *View) Remove(graph string, t *rdf.Triple) error {
	if v.readOnly {
		return pyerr.NewReadOnlyFailure(graph)
	}
	if !v.permitted(graph) {
		return pyerr.NewPermissionFailure(graph, "write")
	}
	return v.store.Remove(graph, t)
}

// RemoveGraph clears a whitelisted graph in the underlying store. The
// graph name stays in the whitelist, so the graph may be re-created by a
// later Add.
func (v *View) RemoveGraph(graph string) error {
	if v.readOnly {
		return pyerr.NewReadOnlyFailure(graph)
	}
	if !v.permitted(graph) {
		return pyerr.NewPermissionFailure(graph, "remove-graph")
	}
	return v.store.RemoveGraph(graph)
}

// Contains reports whether any whitelisted graph holds the triple.
func (v *View) Contains(t *rdf.Triple) (bool, error) {
	for _, g := range v.Graphs() {
		ok, err := v.store.Contains(g, t)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Triples returns graph's triples matching pattern. Fails with
// PermissionFailure if graph is not in the whitelist.
func (v *View) Triples(graph string, pattern quadstore.Pattern) ([]*rdf.Triple, error) {
	if !v.permitted(graph) {
		return nil, pyerr.NewPermissionFailure(graph, "read")
	}
	return v.store.Triples(graph, pattern)
}

// All returns the deduplicated union of every whitelisted graph's
// triples matching pattern; a View iterates its whitelist as if it were
// one graph.
func (v *View) All(pattern quadstore.Pattern) ([]*rdf.Triple, error) {
	var sets [][]*rdf.Triple
	for _, g := range v.Graphs() {
		triples, err := v.store.Triples(g, pattern)
		if err != nil {
			return nil, err
		}
		sets = append(sets, triples)
	}
	return quadstore.Union(sets...), nil
}

// Graphs returns the whitelisted graph names, in the order the store
// knows about them (stable, sorted).
func (v *View) Graphs() []string {
	var out []string
	for _, g := range v.store.GraphNames() {
		if v.graphs[g] {
			out = append(out, g)
		}
	}
	return out
}

func (v *View) ReadOnly() bool { return v.readOnly }
