package reasoner

import (
	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/robertmuil/pythinfer/internal/view"
)

// RLBackend is the default rl-inprocess backend: a forward-chaining
// OWL-RL rule engine. Each rule is a pure function of the full triple
// set, applied repeatedly to the rule set's own fixed point; this
// internal saturation is independent of the outer pipeline loop, which
// alternates the backend against heuristics.
type RLBackend struct{}

func NewRLBackend() *RLBackend { return &RLBackend{} }

func (b *RLBackend) Name() string { return "rl-inprocess" }

func (b *RLBackend) Reason(v *view.View) ([]*rdf.Triple, error) {
	triples, err := v.All(quadstore.Pattern{})
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(triples))
	known := make(map[string]*rdf.Triple, len(triples))
	for _, t := range triples {
		existing[t.String()] = true
		known[t.String()] = t
	}

	for {
		added := false
		for _, t := range applyRules(triples) {
			key := t.String()
			if _, ok := known[key]; !ok {
				known[key] = t
				triples = append(triples, t)
				added = true
			}
		}
		if !added {
			break
		}
	}

	var out []*rdf.Triple
	for _, t := range triples {
		if !existing[t.String()] {
			out = append(out, t)
		}
	}
	return out, nil
}

// applyRules runs one generation of every RL rule this engine supports
// against the current triple set, returning newly derivable triples
// (duplicates against the input are harmless; Reason dedupes).
func applyRules(triples []*rdf.Triple) []*rdf.Triple {
	var out []*rdf.Triple
	out = append(out, subClassTransitivity(triples)...)
	out = append(out, subPropertyTransitivity(triples)...)
	out = append(out, domainRange(triples)...)
	out = append(out, symmetricProperty(triples)...)
	out = append(out, transitiveProperty(triples)...)
	out = append(out, inverseOf(triples)...)
	out = append(out, equivalentClassProperty(triples)...)
	out = append(out, sameAsReplication(triples)...)
	out = append(out, sameAsReflexivity(triples)...)
	out = append(out, thingTyping(triples)...)
	return out
}

func byPredicate(triples []*rdf.Triple, pred *rdf.IRI) []*rdf.Triple {
	var out []*rdf.Triple
	for _, t := range triples {
		if iri, ok := t.Predicate.(*rdf.IRI); ok && iri.Value == pred.Value {
			out = append(out, t)
		}
	}
	return out
}

// subClassTransitivity: rdfs11. (a sc b), (b sc c) => (a sc c).
func subClassTransitivity(triples []*rdf.Triple) []*rdf.Triple {
	edges := byPredicate(triples, rdf.RDFSSubClassOf)
	var out []*rdf.Triple
	for _, e1 := range edges {
		for _, e2 := range edges {
			if e1.Object.Equals(e2.Subject) {
				out = append(out, rdf.NewTriple(e1.Subject, rdf.RDFSSubClassOf, e2.Object))
			}
		}
	}
	return out
}

func subPropertyTransitivity(triples []*rdf.Triple) []*rdf.Triple {
	edges := byPredicate(triples, rdf.RDFSSubPropertyOf)
	var out []*rdf.Triple
	for _, e1 := range edges {
		for _, e2 := range edges {
			if e1.Object.Equals(e2.Subject) {
				out = append(out, rdf.NewTriple(e1.Subject, rdf.RDFSSubPropertyOf, e2.Object))
			}
		}
	}
	return out
}

// domainRange: rdfs2/rdfs3. (p domain C) & (x p y) => (x a C); (p range C)
// & (x p y) => (y a C). Also propagates rdf:type up subClassOf chains
// (cax-sco).
func domainRange(triples []*rdf.Triple) []*rdf.Triple {
	var out []*rdf.Triple
	domains := byPredicate(triples, rdf.RDFSDomain)
	ranges := byPredicate(triples, rdf.RDFSRange)
	typeTriples := byPredicate(triples, rdf.RDFType)
	subClass := byPredicate(triples, rdf.RDFSSubClassOf)

	for _, t := range triples {
		pred, ok := t.Predicate.(*rdf.IRI)
		if !ok {
			continue
		}
		for _, d := range domains {
			if dp, ok := d.Subject.(*rdf.IRI); ok && dp.Value == pred.Value {
				out = append(out, rdf.NewTriple(t.Subject, rdf.RDFType, d.Object))
			}
		}
		for _, r := range ranges {
			if rp, ok := r.Subject.(*rdf.IRI); ok && rp.Value == pred.Value {
				out = append(out, rdf.NewTriple(t.Object, rdf.RDFType, r.Object))
			}
		}
	}
	for _, tt := range typeTriples {
		for _, sc := range subClass {
			if tt.Object.Equals(sc.Subject) {
				out = append(out, rdf.NewTriple(tt.Subject, rdf.RDFType, sc.Object))
			}
		}
	}
	return out
}

// symmetricProperty: prp-symp. (P a owl:SymmetricProperty), (x P y) =>
// (y P x).
func symmetricProperty(triples []*rdf.Triple) []*rdf.Triple {
	var out []*rdf.Triple
	symmetric := make(map[string]bool)
	for _, t := range byPredicate(triples, rdf.RDFType) {
		if obj, ok := t.Object.(*rdf.IRI); ok && obj.Value == rdf.OWLSymmetricProperty.Value {
			if subj, ok := t.Subject.(*rdf.IRI); ok {
				symmetric[subj.Value] = true
			}
		}
	}
	for _, t := range triples {
		if pred, ok := t.Predicate.(*rdf.IRI); ok && symmetric[pred.Value] {
			out = append(out, rdf.NewTriple(t.Object, t.Predicate, t.Subject))
		}
	}
	return out
}

// transitiveProperty: prp-trp. (P a owl:TransitiveProperty), (x P y), (y
// P z) => (x P z).
func transitiveProperty(triples []*rdf.Triple) []*rdf.Triple {
	var out []*rdf.Triple
	transitive := make(map[string]bool)
	for _, t := range byPredicate(triples, rdf.RDFType) {
		if obj, ok := t.Object.(*rdf.IRI); ok && obj.Value == rdf.OWLTransitiveProperty.Value {
			if subj, ok := t.Subject.(*rdf.IRI); ok {
				transitive[subj.Value] = true
			}
		}
	}
	for predValue := range transitive {
		edges := byPredicate(triples, rdf.NewIRI(predValue))
		for _, e1 := range edges {
			for _, e2 := range edges {
				if e1.Object.Equals(e2.Subject) {
					out = append(out, rdf.NewTriple(e1.Subject, e1.Predicate, e2.Object))
				}
			}
		}
	}
	return out
}

// inverseOf: prp-inv. (P owl:inverseOf Q), (x P y) => (y Q x).
func inverseOf(triples []*rdf.Triple) []*rdf.Triple {
	var out []*rdf.Triple
	for _, inv := range byPredicate(triples, rdf.OWLInverseOf) {
		p, ok1 := inv.Subject.(*rdf.IRI)
		q, ok2 := inv.Object.(*rdf.IRI)
		if !ok1 || !ok2 {
			continue
		}
		for _, t := range byPredicate(triples, p) {
			out = append(out, rdf.NewTriple(t.Object, q, t.Subject))
		}
	}
	return out
}

// equivalentClassProperty: scm-eqc1/scm-eqp1. owl:equivalentClass and
// owl:equivalentProperty expand into two-way subClassOf/subPropertyOf.
func equivalentClassProperty(triples []*rdf.Triple) []*rdf.Triple {
	var out []*rdf.Triple
	for _, e := range byPredicate(triples, rdf.OWLEquivalentClass) {
		out = append(out, rdf.NewTriple(e.Subject, rdf.RDFSSubClassOf, e.Object))
		out = append(out, rdf.NewTriple(e.Object, rdf.RDFSSubClassOf, e.Subject))
	}
	for _, e := range byPredicate(triples, rdf.OWLEquivalentProperty) {
		out = append(out, rdf.NewTriple(e.Subject, rdf.RDFSSubPropertyOf, e.Object))
		out = append(out, rdf.NewTriple(e.Object, rdf.RDFSSubPropertyOf, e.Subject))
	}
	return out
}

// sameAsReplication: eq-rep-s/eq-rep-o. (x owl:sameAs y), (x P z) => (y P
// z); (x owl:sameAs y), (z P x) => (z P y).
func sameAsReplication(triples []*rdf.Triple) []*rdf.Triple {
	var out []*rdf.Triple
	sameAs := byPredicate(triples, rdf.OWLSameAs)
	for _, s := range sameAs {
		for _, t := range triples {
			if t.Subject.Equals(s.Subject) {
				out = append(out, rdf.NewTriple(s.Object, t.Predicate, t.Object))
			}
			if t.Object.Equals(s.Subject) {
				out = append(out, rdf.NewTriple(t.Subject, t.Predicate, s.Object))
			}
		}
	}
	return out
}

// sameAsReflexivity: eq-ref. Every resource that appears as a subject
// or object is trivially owl:sameAs itself. This is deliberately
// generated axiom noise, produced the way a real RL engine does; the
// filter chain strips it back out before export.
func sameAsReflexivity(triples []*rdf.Triple) []*rdf.Triple {
	seen := make(map[string]rdf.Term)
	for _, t := range triples {
		if t.Subject.Type() != rdf.TermTypeLiteral {
			seen[t.Subject.String()] = t.Subject
		}
		if t.Object.Type() != rdf.TermTypeLiteral {
			seen[t.Object.String()] = t.Object
		}
	}
	var out []*rdf.Triple
	for _, term := range seen {
		out = append(out, rdf.NewTriple(term, rdf.OWLSameAs, term))
	}
	return out
}

// thingTyping: every resource is an owl:Thing. Also deliberately
// produced axiom noise; the filter chain's trivial-typing rule strips
// it.
func thingTyping(triples []*rdf.Triple) []*rdf.Triple {
	seen := make(map[string]rdf.Term)
	for _, t := range triples {
		if t.Subject.Type() != rdf.TermTypeLiteral {
			seen[t.Subject.String()] = t.Subject
		}
	}
	var out []*rdf.Triple
	for _, term := range seen {
		out = append(out, rdf.NewTriple(term, rdf.RDFType, rdf.OWLThing))
	}
	return out
}
