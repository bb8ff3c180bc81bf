// Package reasoner computes OWL-RL entailments over a restricted view
// and deposits the delta (triples not already present) into a target
// graph. Backends are tagged variants behind one interface: the
// mandatory in-process rule engine, a generation-by-generation variant
// of the same rules, and a subprocess adapter.
package reasoner

import (
	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/robertmuil/pythinfer/internal/view"
)

// Backend computes entailments over v and returns the triples it
// derived that are not already present in v (the delta). Implementations
// must not mutate v; depositing the delta is the caller's job, so a
// Backend stays a pure function of the view it reads.
type Backend interface {
	Name() string
	Reason(v *view.View) ([]*rdf.Triple, error)
}

// Apply runs backend over v, filters out triples that would be invalid
// RDF, computes the delta against v's current content, and writes the
// delta into targetGraph through target, a separate write-capable view
// the caller constructs.
func Apply(backend Backend, v *view.View, target *view.View, targetGraph string) ([]*rdf.Triple, error) {
	entailed, err := backend.Reason(v)
	if err != nil {
		return nil, err
	}

	existing, err := v.All(quadstore.Pattern{})
	if err != nil {
		return nil, err
	}
	existingSet := make(map[string]bool, len(existing))
	for _, t := range existing {
		existingSet[t.String()] = true
	}

	var delta []*rdf.Triple
	for _, t := range entailed {
		if !isValidTriple(t) {
			continue
		}
		if existingSet[t.String()] {
			continue
		}
		delta = append(delta, t)
	}

	if len(delta) > 0 {
		if err := target.BulkAdd(targetGraph, delta); err != nil {
			return nil, err
		}
	}
	return delta, nil
}

// isValidTriple rejects the malformed shapes an RL backend may
// legitimately emit as a side effect of rule application: a literal
// cannot appear as a subject.
func isValidTriple(t *rdf.Triple) bool {
	if t.Subject.Type() == rdf.TermTypeLiteral {
		return false
	}
	return true
}
