package filter

import (
	"testing"

	"github.com/robertmuil/pythinfer/internal/rdf"
)

var (
	x = rdf.NewIRI("http://example.org/x")
	y = rdf.NewIRI("http://example.org/y")
	p = rdf.NewIRI("http://example.org/p")
)

func contains(triples []*rdf.Triple, want *rdf.Triple) bool {
	for _, t := range triples {
		if t.Equals(want) {
			return true
		}
	}
	return false
}

func TestDropsLiteralSubject(t *testing.T) {
	bad := rdf.NewTriple(rdf.NewLiteral("lit"), p, y)
	out := Apply([]*rdf.Triple{bad})
	if len(out) != 0 {
		t.Fatalf("expected literal-subject triple dropped, got %v", out)
	}
}

func TestDropsEmptyStringObject(t *testing.T) {
	bad := rdf.NewTriple(x, p, rdf.NewLiteral(""))
	good := rdf.NewTriple(x, p, rdf.NewLiteral("value"))
	out := Apply([]*rdf.Triple{bad, good})
	if len(out) != 1 || !out[0].Equals(good) {
		t.Fatalf("expected only non-empty literal kept, got %v", out)
	}
}

func TestDropsReflexiveSameAs(t *testing.T) {
	bad := rdf.NewTriple(x, rdf.OWLSameAs, x)
	good := rdf.NewTriple(x, rdf.OWLSameAs, y)
	out := Apply([]*rdf.Triple{bad, good})
	if contains(out, bad) {
		t.Fatalf("reflexive sameAs survived: %v", out)
	}
	if !contains(out, good) {
		t.Fatalf("non-reflexive sameAs dropped: %v", out)
	}
}

func TestDropsTrivialThingType(t *testing.T) {
	bad := rdf.NewTriple(x, rdf.RDFType, rdf.OWLThing)
	good := rdf.NewTriple(x, rdf.RDFType, y)
	out := Apply([]*rdf.Triple{bad, good})
	if contains(out, bad) || !contains(out, good) {
		t.Fatalf("owl:Thing filtering wrong: %v", out)
	}
}

func TestNothingSubclassDirectionality(t *testing.T) {
	banal := rdf.NewTriple(rdf.OWLNothing, rdf.RDFSSubClassOf, x)
	contradiction := rdf.NewTriple(x, rdf.RDFSSubClassOf, rdf.OWLNothing)
	out := Apply([]*rdf.Triple{banal, contradiction})
	if contains(out, banal) {
		t.Fatalf("banal owl:Nothing subclass triple survived: %v", out)
	}
	if !contains(out, contradiction) {
		t.Fatalf("contradiction marker was dropped, must be preserved: %v", out)
	}
}

func TestPrunesUndeclaredBlankNodes(t *testing.T) {
	b := rdf.NewBlankNode("b1")
	dangling := rdf.NewTriple(x, p, b)
	out := Apply([]*rdf.Triple{dangling})
	if len(out) != 0 {
		t.Fatalf("expected triple with undeclared blank node object dropped, got %v", out)
	}
}

func TestBlankNodePruningCascades(t *testing.T) {
	// b1 is never a subject, so its triple drops; b2 is the subject of
	// its own triples, so they survive.
	b1 := rdf.NewBlankNode("b1")
	b2 := rdf.NewBlankNode("b2")
	triples := []*rdf.Triple{
		rdf.NewTriple(x, p, b1), // b1 undeclared, dropped
		rdf.NewTriple(b2, p, y), // b2 declared here
		rdf.NewTriple(b2, p, rdf.NewLiteral("v")),
	}
	out := Apply(triples)
	if len(out) != 2 {
		t.Fatalf("expected b2's triples kept and b1's dropped, got %v", out)
	}

	cascade := []*rdf.Triple{
		rdf.NewTriple(x, p, b1),
		rdf.NewTriple(b1, p, b2),
	}
	out = Apply(cascade)
	// b2 is never declared, so (b1 p b2) drops; that removes b1's only
	// subject position, which then orphans (x p b1) on the next pass.
	if len(out) != 0 {
		t.Fatalf("expected cascading prune to empty the set, got %v", out)
	}
}

func TestBlankNodeDeclaredAsSubjectKept(t *testing.T) {
	b := rdf.NewBlankNode("b1")
	triples := []*rdf.Triple{
		rdf.NewTriple(x, p, b),
		rdf.NewTriple(b, p, y),
	}
	out := Apply(triples)
	if len(out) != 2 {
		t.Fatalf("expected declared blank node triples kept, got %v", out)
	}
}

func TestFilterIdempotent(t *testing.T) {
	b := rdf.NewBlankNode("b1")
	triples := []*rdf.Triple{
		rdf.NewTriple(x, rdf.OWLSameAs, x),
		rdf.NewTriple(x, rdf.RDFType, rdf.OWLThing),
		rdf.NewTriple(x, p, y),
		rdf.NewTriple(x, p, b),
		rdf.NewTriple(b, p, y),
		rdf.NewTriple(x, rdf.RDFSSubClassOf, rdf.OWLNothing),
	}
	once := Apply(triples)
	twice := Apply(once)
	if len(once) != len(twice) {
		t.Fatalf("filter not idempotent: %d vs %d triples", len(once), len(twice))
	}
	for i := range once {
		if !once[i].Equals(twice[i]) {
			t.Fatalf("filter not idempotent at %d: %v vs %v", i, once[i], twice[i])
		}
	}
}
