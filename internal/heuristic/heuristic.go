// Package heuristic implements the heuristic runners: user rules that
// are awkward to express in OWL-RL, either as SPARQL CONSTRUCT queries
// or as registered Go functions. Each heuristic is a pure function of
// the view it reads, returning a delta the runner deposits into the
// designated heuristic-output graph.
package heuristic

import (
	"fmt"
	"sort"

	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/robertmuil/pythinfer/internal/sparql"
	"github.com/robertmuil/pythinfer/internal/view"
)

// Kind discriminates the two heuristic flavors.
type Kind byte

const (
	KindSPARQLConstruct Kind = iota + 1
	KindProcedural
)

// Rule is a registered procedural heuristic: a pure function of a
// read-only view returning the triples it derives (duplicates against
// the view are fine; the runner dedupes).
type Rule func(v *view.View) ([]*rdf.Triple, error)

// Heuristic is one configured inference rule with a stable id used in
// diagnostics.
type Heuristic struct {
	ID   string
	Kind Kind

	// Query is the parsed CONSTRUCT for KindSPARQLConstruct.
	Query *sparql.Query
	// Rule is the registered function for KindProcedural.
	Rule Rule
}

// NewSPARQL parses text as a CONSTRUCT query and wraps it as a
// heuristic. Non-CONSTRUCT query forms are rejected here rather than at
// apply time.
func NewSPARQL(id, text string) (*Heuristic, error) {
	q, err := sparql.NewParser(text).Parse()
	if err != nil {
		return nil, fmt.Errorf("heuristic %s: %w", id, err)
	}
	if q.Type != sparql.QueryTypeConstruct {
		return nil, fmt.Errorf("heuristic %s: expected a CONSTRUCT query", id)
	}
	return &Heuristic{ID: id, Kind: KindSPARQLConstruct, Query: q}, nil
}

// NewProcedural wraps a registered rule function as a heuristic.
func NewProcedural(id string, rule Rule) *Heuristic {
	return &Heuristic{ID: id, Kind: KindProcedural, Rule: rule}
}

// Apply evaluates h against the read view and writes the resulting delta
// (triples not already visible in the view) into targetGraph through the
// write view. Returns the delta.
func Apply(h *Heuristic, read *view.View, write *view.View, targetGraph string) ([]*rdf.Triple, error) {
	var derived []*rdf.Triple
	var err error
	switch h.Kind {
	case KindSPARQLConstruct:
		derived, err = sparql.NewEvaluator(read).Construct(h.Query)
	case KindProcedural:
		derived, err = h.Rule(read)
	default:
		err = fmt.Errorf("heuristic %s: unknown kind %d", h.ID, h.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("heuristic %s: %w", h.ID, err)
	}

	existing, err := read.All(quadstore.Pattern{})
	if err != nil {
		return nil, err
	}
	existingSet := make(map[string]bool, len(existing))
	for _, t := range existing {
		existingSet[t.String()] = true
	}

	var delta []*rdf.Triple
	seen := make(map[string]bool)
	for _, t := range derived {
		key := t.String()
		if existingSet[key] || seen[key] {
			continue
		}
		seen[key] = true
		delta = append(delta, t)
	}

	if len(delta) > 0 {
		if err := write.BulkAdd(targetGraph, delta); err != nil {
			return nil, err
		}
	}
	return delta, nil
}

// Registry maps procedural-rule identifiers (the strings a project's
// heuristics.python list names) to their implementations.
type Registry struct {
	rules map[string]Rule
}

func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]Rule)}
	r.Register("dct-version-of-sameas", dctVersionOfSameAs)
	return r
}

func (r *Registry) Register(id string, rule Rule) {
	r.rules[id] = rule
}

func (r *Registry) Lookup(id string) (Rule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, fmt.Errorf("no procedural heuristic registered under %q (have %v)", id, r.IDs())
	}
	return rule, nil
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var dctIsVersionOf = rdf.NewIRI("http://purl.org/dc/terms/isVersionOf")

// dctVersionOfSameAs: when a blank node is declared a version of a named
// resource via dct:isVersionOf, assert owl:sameAs between them so the
// reasoner folds the blank node's assertions onto the named resource.
// Shipped as an example project-suppliable rule, not enabled by default.
func dctVersionOfSameAs(v *view.View) ([]*rdf.Triple, error) {
	triples, err := v.All(quadstore.Pattern{Predicate: dctIsVersionOf})
	if err != nil {
		return nil, err
	}
	var out []*rdf.Triple
	for _, t := range triples {
		if t.Subject.Type() != rdf.TermTypeBlankNode {
			continue
		}
		if t.Object.Type() == rdf.TermTypeLiteral {
			continue
		}
		out = append(out, rdf.NewTriple(t.Subject, rdf.OWLSameAs, t.Object))
	}
	return out, nil
}
