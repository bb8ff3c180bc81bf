package view

import (
	"errors"
	"testing"

	"github.com/robertmuil/pythinfer/internal/pyerr"
	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
)

func newTestStore(t *testing.T) *quadstore.QuadStore {
	t.Helper()
	qs, err := quadstore.NewQuadStore()
	if err != nil {
		t.Fatalf("NewQuadStore: %v", err)
	}
	t.Cleanup(func() { qs.Close() })
	qs.CreateGraph("g1", quadstore.CategoryLocal)
	qs.CreateGraph("g2", quadstore.CategoryLocal)
	return qs
}

func TestViewDeniesOutOfWhitelistGraph(t *testing.T) {
	qs := newTestStore(t)
	v := New(qs, []string{"g1"}, false)

	err := v.Add("g2", rdf.NewTriple(rdf.NewIRI("s"), rdf.NewIRI("p"), rdf.NewIRI("o")))
	var pf *pyerr.PermissionFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PermissionFailure, got %v", err)
	}
}

func TestViewRejectsWriteWhenReadOnly(t *testing.T) {
	qs := newTestStore(t)
	v := New(qs, []string{"g1"}, true)

	err := v.Add("g1", rdf.NewTriple(rdf.NewIRI("s"), rdf.NewIRI("p"), rdf.NewIRI("o")))
	var ro *pyerr.ReadOnlyFailure
	if !errors.As(err, &ro) {
		t.Fatalf("expected ReadOnlyFailure, got %v", err)
	}
}

func TestViewAllUnionsWhitelistedGraphsOnly(t *testing.T) {
	qs := newTestStore(t)
	s, p, o1, o2 := rdf.NewIRI("s"), rdf.NewIRI("p"), rdf.NewIRI("o1"), rdf.NewIRI("o2")
	qs.Add("g1", rdf.NewTriple(s, p, o1))
	qs.Add("g2", rdf.NewTriple(s, p, o2))

	v := New(qs, []string{"g1"}, false)
	all, err := v.All(quadstore.Pattern{})
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 || !all[0].Object.Equals(o1) {
		t.Fatalf("expected only g1's triple, got %v", all)
	}
}

func TestViewAllDedupesAcrossGraphs(t *testing.T) {
	qs := newTestStore(t)
	s, p, o := rdf.NewIRI("s"), rdf.NewIRI("p"), rdf.NewIRI("o")
	qs.Add("g1", rdf.NewTriple(s, p, o))
	qs.Add("g2", rdf.NewTriple(s, p, o))

	v := New(qs, []string{"g1", "g2"}, false)
	all, err := v.All(quadstore.Pattern{})
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 deduplicated triple across graphs, got %d", len(all))
	}
}

func TestViewContains(t *testing.T) {
	qs := newTestStore(t)
	tr := rdf.NewTriple(rdf.NewIRI("s"), rdf.NewIRI("p"), rdf.NewIRI("o"))
	qs.Add("g2", tr)

	v := New(qs, []string{"g1"}, false)
	ok, err := v.Contains(tr)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if ok {
		t.Fatalf("triple outside the whitelist must be invisible")
	}

	v2 := New(qs, []string{"g1", "g2"}, false)
	ok, err = v2.Contains(tr)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if !ok {
		t.Fatalf("whitelisted triple not found")
	}
}

func TestViewRemoveGraph(t *testing.T) {
	qs := newTestStore(t)
	tr := rdf.NewTriple(rdf.NewIRI("s"), rdf.NewIRI("p"), rdf.NewIRI("o"))
	qs.Add("g1", tr)

	v := New(qs, []string{"g1"}, false)
	if err := v.RemoveGraph("g1"); err != nil {
		t.Fatalf("RemoveGraph: %v", err)
	}
	all, err := v.All(quadstore.Pattern{})
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("graph not emptied: %v", all)
	}

	// The name stays whitelisted, so the graph can be re-created.
	if err := v.Add("g1", tr); err != nil {
		t.Fatalf("re-creating removed graph: %v", err)
	}

	var pf *pyerr.PermissionFailure
	if err := v.RemoveGraph("g2"); !errors.As(err, &pf) {
		t.Fatalf("expected PermissionFailure removing non-whitelisted graph")
	}
}
