// Package filter implements the filter chain: the ordered per-triple
// and whole-graph rules that strip invalid and unwanted triples from
// the exportable result. Filtering is pure: it takes a triple set and
// returns a smaller one, never touching the store.
package filter

import "github.com/robertmuil/pythinfer/internal/rdf"

// TripleRule is one streaming per-triple filter: it reports whether the
// triple should be kept.
type TripleRule func(t *rdf.Triple) bool

// PerTripleRules is the ordered per-triple phase. Order matters only for
// diagnostics; the rules are independent predicates.
var PerTripleRules = []TripleRule{
	validSubject,
	nonEmptyLiteralObject,
	noReflexiveSameAs,
	noTrivialThingType,
	noBanalNothingSubclass,
}

// validSubject drops invalid RDF: a literal in subject position.
func validSubject(t *rdf.Triple) bool {
	return t.Subject.Type() != rdf.TermTypeLiteral
}

// nonEmptyLiteralObject drops triples whose object is the empty string
// literal.
func nonEmptyLiteralObject(t *rdf.Triple) bool {
	l, ok := t.Object.(*rdf.Literal)
	return !ok || l.Lexical != ""
}

// noReflexiveSameAs drops (x owl:sameAs x).
func noReflexiveSameAs(t *rdf.Triple) bool {
	p, ok := t.Predicate.(*rdf.IRI)
	if !ok || p.Value != rdf.OWLSameAs.Value {
		return true
	}
	return !t.Subject.Equals(t.Object)
}

// noTrivialThingType drops (x rdf:type owl:Thing).
func noTrivialThingType(t *rdf.Triple) bool {
	p, ok := t.Predicate.(*rdf.IRI)
	if !ok || p.Value != rdf.RDFType.Value {
		return true
	}
	o, ok := t.Object.(*rdf.IRI)
	return !ok || o.Value != rdf.OWLThing.Value
}

// noBanalNothingSubclass drops (owl:Nothing rdfs:subClassOf X) for X
// other than owl:Nothing. The opposite direction, (X rdfs:subClassOf
// owl:Nothing), marks a contradiction and is kept.
func noBanalNothingSubclass(t *rdf.Triple) bool {
	p, ok := t.Predicate.(*rdf.IRI)
	if !ok || p.Value != rdf.RDFSSubClassOf.Value {
		return true
	}
	s, ok := t.Subject.(*rdf.IRI)
	if !ok || s.Value != rdf.OWLNothing.Value {
		return true
	}
	o, ok := t.Object.(*rdf.IRI)
	return ok && o.Value == rdf.OWLNothing.Value
}

// Apply runs the full chain: the per-triple phase once, then the
// undeclared-blank-node prune to its own fixed point. Input order is
// preserved, so the same input always yields the same output.
func Apply(triples []*rdf.Triple) []*rdf.Triple {
	kept := make([]*rdf.Triple, 0, len(triples))
	for _, t := range triples {
		keep := true
		for _, rule := range PerTripleRules {
			if !rule(t) {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, t)
		}
	}
	return pruneUndeclaredBlankNodes(kept)
}

// pruneUndeclaredBlankNodes drops every triple whose subject or object
// is a blank node that never appears as a subject in the current set. A
// drop can orphan further blank nodes, so the pass repeats until it
// removes nothing.
func pruneUndeclaredBlankNodes(triples []*rdf.Triple) []*rdf.Triple {
	for {
		declared := make(map[string]bool)
		for _, t := range triples {
			if b, ok := t.Subject.(*rdf.BlankNode); ok {
				declared[b.ID] = true
			}
		}

		kept := triples[:0:0]
		dropped := false
		for _, t := range triples {
			if undeclared(t.Subject, declared) || undeclared(t.Object, declared) {
				dropped = true
				continue
			}
			kept = append(kept, t)
		}
		triples = kept
		if !dropped {
			return triples
		}
	}
}

func undeclared(term rdf.Term, declared map[string]bool) bool {
	b, ok := term.(*rdf.BlankNode)
	return ok && !declared[b.ID]
}
