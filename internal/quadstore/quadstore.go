// Package quadstore implements the in-memory, multi-graph RDF store the
// pipeline runs over: per-graph iteration, pattern queries, and
// graph-level set algebra. Quads are kept in a single graph-keyed table
// rather than SPO/POS/OSP permutation indexes, since every caller in
// this pipeline (views, merger, reasoner, filters, exporter) asks "give
// me this graph's triples", never an unbounded cross-graph join.
package quadstore

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/zeebo/xxh3"
)

// Category records how a named graph entered the store: reference
// graphs come from the project's reference files, local graphs from the
// project's own files, derived graphs are written only by the
// reasoner/heuristics/pipeline. A graph's category is set once, at
// creation, and never changes.
type Category byte

const (
	CategoryReference Category = iota + 1
	CategoryLocal
	CategoryDerived
)

func (c Category) String() string {
	switch c {
	case CategoryReference:
		return "reference"
	case CategoryLocal:
		return "local"
	case CategoryDerived:
		return "derived"
	default:
		return "unknown"
	}
}

// Pattern is a triple/quad query with nil fields acting as wildcards.
type Pattern struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
}

func (p Pattern) matches(t *rdf.Triple) bool {
	if p.Subject != nil && !p.Subject.Equals(t.Subject) {
		return false
	}
	if p.Predicate != nil && !p.Predicate.Equals(t.Predicate) {
		return false
	}
	if p.Object != nil && !p.Object.Equals(t.Object) {
		return false
	}
	return true
}

// QuadStore is the single in-memory, multi-graph RDF store pythinfer
// runs a pipeline over. Every quad belongs to exactly one named graph;
// there is no default-graph union.
type QuadStore struct {
	storage Storage

	mu         sync.RWMutex
	categories map[string]Category // graph name -> category, set once

	bnodeSeq uint64
	// bnodeNames remaps a graph-local blank node id (as minted by a
	// parser, which numbers blank nodes starting from b0 independently
	// per file) to a store-wide fresh id, so that two files that each
	// produced "_:b0" don't collide once merged into the same store.
	// Only BulkAddScoped consults it: once a blank node carries a
	// store-minted id, later adds must preserve that id or the node's
	// triples detach from each other.
	bnodeNames map[string]string
}

func NewQuadStore() (*QuadStore, error) {
	storage, err := NewBadgerStorage()
	if err != nil {
		return nil, err
	}
	return &QuadStore{
		storage:    storage,
		categories: make(map[string]Category),
		bnodeNames: make(map[string]string),
	}, nil
}

func (qs *QuadStore) Close() error {
	return qs.storage.Close()
}

// CreateGraph registers name with category, if it does not already exist.
// Re-registering an existing graph with the same category is a no-op;
// any other call with a name already in use is an error, since a graph's
// category is write-once.
func (qs *QuadStore) CreateGraph(name string, category Category) error {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	if existing, ok := qs.categories[name]; ok {
		if existing == category {
			return nil
		}
		return fmt.Errorf("graph %s already registered as category %s, cannot re-register as %s", name, existing, category)
	}
	qs.categories[name] = category
	return nil
}

func (qs *QuadStore) Category(name string) (Category, bool) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	c, ok := qs.categories[name]
	return c, ok
}

// GraphNames returns every registered graph name, sorted.
func (qs *QuadStore) GraphNames() []string {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	names := make([]string, 0, len(qs.categories))
	for name := range qs.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (qs *QuadStore) GraphNamesByCategory(category Category) []string {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	var names []string
	for name, c := range qs.categories {
		if c == category {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func graphKey(graph string) [16]byte {
	return hash128(graph)
}

func hash128(s string) [16]byte {
	h := xxh3.Hash128([]byte(s))
	var out [16]byte
	binary.BigEndian.PutUint64(out[0:8], h.Hi)
	binary.BigEndian.PutUint64(out[8:16], h.Lo)
	return out
}

func quadKey(graph string, t *rdf.Triple) []byte {
	g := graphKey(graph)
	tr := hash128(t.String())
	key := make([]byte, 32)
	copy(key[0:16], g[:])
	copy(key[16:32], tr[:])
	return key
}

// renameBlankNode assigns a store-wide fresh blank node id the first time
// (graph, localID) is seen, and reuses it afterward so that repeated
// occurrences of the same local id within one graph still refer to the
// same node.
func (qs *QuadStore) renameBlankNode(graph string, b *rdf.BlankNode) *rdf.BlankNode {
	key := graph + "\x00" + b.ID
	qs.mu.Lock()
	defer qs.mu.Unlock()
	if existing, ok := qs.bnodeNames[key]; ok {
		return rdf.NewBlankNode(existing)
	}
	id := fmt.Sprintf("b%d", atomic.AddUint64(&qs.bnodeSeq, 1))
	qs.bnodeNames[key] = id
	return rdf.NewBlankNode(id)
}

func (qs *QuadStore) scopeTerm(graph string, term rdf.Term) rdf.Term {
	if b, ok := term.(*rdf.BlankNode); ok {
		return qs.renameBlankNode(graph, b)
	}
	return term
}

func (qs *QuadStore) scopeTriple(graph string, t *rdf.Triple) *rdf.Triple {
	return rdf.NewTriple(
		qs.scopeTerm(graph, t.Subject),
		t.Predicate, // predicates are never blank in this data model
		qs.scopeTerm(graph, t.Object),
	)
}

// Add inserts one triple into graph. Blank node ids are stored as given:
// they are assumed to be store-scoped already (parsed input goes through
// BulkAddScoped instead).
func (qs *QuadStore) Add(graph string, t *rdf.Triple) error {
	return qs.BulkAdd(graph, []*rdf.Triple{t})
}

// BulkAdd inserts triples into graph in one transaction, preserving
// blank node ids. This is the path for derived deltas (reasoner and
// heuristic output), whose blank nodes reference nodes the store already
// minted; renaming them here would detach a delta from the node it is
// about. An unregistered graph is auto-created with category derived.
func (qs *QuadStore) BulkAdd(graph string, triples []*rdf.Triple) error {
	return qs.bulkAdd(graph, triples, false)
}

// BulkAddScoped inserts freshly parsed triples, renaming each graph-local
// blank node label to a store-wide fresh id per renameBlankNode. The
// merger uses this so two files that each minted "_:b0" stay distinct
// nodes.
func (qs *QuadStore) BulkAddScoped(graph string, triples []*rdf.Triple) error {
	return qs.bulkAdd(graph, triples, true)
}

func (qs *QuadStore) bulkAdd(graph string, triples []*rdf.Triple, scope bool) error {
	if _, ok := qs.Category(graph); !ok {
		if err := qs.CreateGraph(graph, CategoryDerived); err != nil {
			return err
		}
	}
	txn, err := qs.storage.Begin(true)
	if err != nil {
		return err
	}
	for _, t := range triples {
		if scope {
			t = qs.scopeTriple(graph, t)
		}
		q := rdf.NewQuad(t.Subject, t.Predicate, t.Object, rdf.NewIRI(graph))
		if err := txn.Set(TableQuad, quadKey(graph, t), []byte(q.String())); err != nil {
			txn.Rollback()
			return err
		}
	}
	return txn.Commit()
}

// Remove deletes one triple from graph, if present.
func (qs *QuadStore) Remove(graph string, t *rdf.Triple) error {
	txn, err := qs.storage.Begin(true)
	if err != nil {
		return err
	}
	if err := txn.Delete(TableQuad, quadKey(graph, t)); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit()
}

// Triples returns every triple in graph matching pattern.
func (qs *QuadStore) Triples(graph string, pattern Pattern) ([]*rdf.Triple, error) {
	txn, err := qs.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	g := graphKey(graph)
	it, err := txn.Scan(TableQuad, g[:])
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []*rdf.Triple
	for it.Next() {
		val, err := it.Value()
		if err != nil {
			return nil, err
		}
		q, err := decodeQuadLine(string(val))
		if err != nil {
			return nil, err
		}
		t := q.Triple()
		if pattern.matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Contains reports whether graph holds the triple.
func (qs *QuadStore) Contains(graph string, t *rdf.Triple) (bool, error) {
	txn, err := qs.storage.Begin(false)
	if err != nil {
		return false, err
	}
	defer txn.Rollback()
	_, err = txn.Get(TableQuad, quadKey(graph, t))
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveGraph deletes every triple in graph. The graph's category
// registration is kept, so the graph can be re-created later under the
// same category.
func (qs *QuadStore) RemoveGraph(graph string) error {
	triples, err := qs.Triples(graph, Pattern{})
	if err != nil {
		return err
	}
	txn, err := qs.storage.Begin(true)
	if err != nil {
		return err
	}
	for _, t := range triples {
		if err := txn.Delete(TableQuad, quadKey(graph, t)); err != nil {
			txn.Rollback()
			return err
		}
	}
	return txn.Commit()
}

// GraphDifference returns the quads of graph a whose triple does not
// occur in graph b, regardless of graph names.
func (qs *QuadStore) GraphDifference(a, b string) ([]*rdf.Quad, error) {
	ta, err := qs.Triples(a, Pattern{})
	if err != nil {
		return nil, err
	}
	tb, err := qs.Triples(b, Pattern{})
	if err != nil {
		return nil, err
	}
	g := rdf.NewIRI(a)
	var out []*rdf.Quad
	for _, t := range Difference(ta, tb) {
		out = append(out, rdf.NewQuad(t.Subject, t.Predicate, t.Object, g))
	}
	return out, nil
}

// Count returns the total number of triples across all graphs.
func (qs *QuadStore) Count() (int, error) {
	total := 0
	for _, g := range qs.GraphNames() {
		triples, err := qs.Triples(g, Pattern{})
		if err != nil {
			return 0, err
		}
		total += len(triples)
	}
	return total, nil
}

// Quads returns every quad in the store (across all graphs) matching
// pattern.
func (qs *QuadStore) Quads(pattern Pattern) ([]*rdf.Quad, error) {
	var out []*rdf.Quad
	for _, name := range qs.GraphNames() {
		triples, err := qs.Triples(name, pattern)
		if err != nil {
			return nil, err
		}
		for _, t := range triples {
			out = append(out, rdf.NewQuad(t.Subject, t.Predicate, t.Object, rdf.NewIRI(name)))
		}
	}
	return out, nil
}

func decodeQuadLine(line string) (*rdf.Quad, error) {
	p := rdf.NewNQuadsParser(line)
	quads, err := p.Parse()
	if err != nil {
		return nil, err
	}
	if len(quads) != 1 {
		return nil, fmt.Errorf("expected exactly one quad, got %d", len(quads))
	}
	return quads[0], nil
}

// Union returns the deduplicated set of triples across graphs, sorted
// (the restricted view and the combined-graph export both need this).
func Union(stores ...[]*rdf.Triple) []*rdf.Triple {
	seen := make(map[string]*rdf.Triple)
	var order []string
	for _, triples := range stores {
		for _, t := range triples {
			key := t.String()
			if _, ok := seen[key]; !ok {
				order = append(order, key)
			}
			seen[key] = t
		}
	}
	sort.Strings(order)
	out := make([]*rdf.Triple, len(order))
	for i, key := range order {
		out[i] = seen[key]
	}
	return out
}

// Difference returns the triples in a that are not in b.
func Difference(a, b []*rdf.Triple) []*rdf.Triple {
	inB := make(map[string]bool, len(b))
	for _, t := range b {
		inB[t.String()] = true
	}
	var out []*rdf.Triple
	for _, t := range a {
		if !inB[t.String()] {
			out = append(out, t)
		}
	}
	return out
}
