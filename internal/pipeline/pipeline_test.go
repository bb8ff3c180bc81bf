package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/robertmuil/pythinfer/internal/heuristic"
	"github.com/robertmuil/pythinfer/internal/pyerr"
	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/robertmuil/pythinfer/internal/reasoner"
	"github.com/robertmuil/pythinfer/internal/view"
)

const (
	ex   = "http://example.org/"
	foaf = "http://xmlns.com/foaf/0.1/"
)

var (
	alice      = rdf.NewIRI(ex + "Alice")
	bob        = rdf.NewIRI(ex + "Bob")
	jamiroquai = rdf.NewIRI(ex + "Jamiroquai")
	knows      = rdf.NewIRI(foaf + "knows")
	age        = rdf.NewIRI(foaf + "age")
	person     = rdf.NewIRI(foaf + "Person")
)

func newTestStore(t *testing.T) *quadstore.QuadStore {
	t.Helper()
	qs, err := quadstore.NewQuadStore()
	if err != nil {
		t.Fatalf("NewQuadStore: %v", err)
	}
	t.Cleanup(func() { qs.Close() })
	return qs
}

func addLocal(t *testing.T, qs *quadstore.QuadStore, graph string, triples []*rdf.Triple) {
	t.Helper()
	if err := qs.CreateGraph(graph, quadstore.CategoryLocal); err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	if err := qs.BulkAdd(graph, triples); err != nil {
		t.Fatalf("BulkAdd: %v", err)
	}
}

func addReference(t *testing.T, qs *quadstore.QuadStore, graph string, triples []*rdf.Triple) {
	t.Helper()
	if err := qs.CreateGraph(graph, quadstore.CategoryReference); err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	if err := qs.BulkAdd(graph, triples); err != nil {
		t.Fatalf("BulkAdd: %v", err)
	}
}

func contains(triples []*rdf.Triple, want *rdf.Triple) bool {
	for _, t := range triples {
		if t.Equals(want) {
			return true
		}
	}
	return false
}

// whoKnowsWhomTriples is the symmetric-property scenario input.
func whoKnowsWhomTriples() []*rdf.Triple {
	return []*rdf.Triple{
		rdf.NewTriple(knows, rdf.RDFType, rdf.OWLSymmetricProperty),
		rdf.NewTriple(alice, rdf.RDFType, person),
		rdf.NewTriple(alice, age, rdf.NewIntegerLiteral(30)),
		rdf.NewTriple(bob, rdf.RDFType, person),
		rdf.NewTriple(bob, knows, alice),
	}
}

func TestSymmetricEntailment(t *testing.T) {
	qs := newTestStore(t)
	addLocal(t, qs, "file:///data.ttl", whoKnowsWhomTriples())

	result, err := Run(context.Background(), qs, nil, []string{"file:///data.ttl"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Converged {
		t.Fatalf("expected convergence, rounds=%d", result.Rounds)
	}

	if !contains(result.CombinedWanted, rdf.NewTriple(bob, knows, alice)) {
		t.Fatalf("asserted triple missing from combined_wanted")
	}
	if !contains(result.CombinedWanted, rdf.NewTriple(alice, knows, bob)) {
		t.Fatalf("symmetric entailment missing from combined_wanted")
	}
	if contains(result.CombinedWanted, rdf.NewTriple(alice, rdf.OWLSameAs, alice)) {
		t.Fatalf("reflexive sameAs banality leaked into combined_wanted")
	}
	if contains(result.CombinedWanted, rdf.NewTriple(alice, rdf.RDFType, rdf.OWLThing)) {
		t.Fatalf("trivial owl:Thing typing leaked into combined_wanted")
	}
}

func TestCelebrityHeuristicConvergesWithinThreeRounds(t *testing.T) {
	qs := newTestStore(t)
	addLocal(t, qs, "file:///data.ttl", whoKnowsWhomTriples())

	celebrity, err := heuristic.NewSPARQL("celebrity", `
		PREFIX foaf: <http://xmlns.com/foaf/0.1/>
		PREFIX ex: <http://example.org/>
		CONSTRUCT { ?x foaf:knows ex:Jamiroquai . }
		WHERE { ?x foaf:age ?age ; foaf:knows ex:Bob . FILTER(?age > 29) }
	`)
	if err != nil {
		t.Fatalf("NewSPARQL: %v", err)
	}

	result, err := Run(context.Background(), qs, nil, []string{"file:///data.ttl"}, Options{
		Heuristics: []*heuristic.Heuristic{celebrity},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Converged || result.Rounds > 3 {
		t.Fatalf("expected convergence within 3 rounds, got converged=%v rounds=%d", result.Converged, result.Rounds)
	}

	if !contains(result.CombinedWanted, rdf.NewTriple(alice, knows, jamiroquai)) {
		t.Fatalf("heuristic output missing from combined_wanted")
	}
	if !contains(result.CombinedWanted, rdf.NewTriple(jamiroquai, knows, alice)) {
		t.Fatalf("second-pass symmetric entailment of heuristic output missing")
	}
}

func TestReferenceNoiseSuppression(t *testing.T) {
	qs := newTestStore(t)
	a := rdf.NewIRI(ex + "A")
	b := rdf.NewIRI(ex + "B")
	c := rdf.NewIRI(ex + "C")
	x := rdf.NewIRI(ex + "x")

	addReference(t, qs, "file:///vocab.ttl", []*rdf.Triple{
		rdf.NewTriple(a, rdf.RDFSSubClassOf, b),
		rdf.NewTriple(b, rdf.RDFSSubClassOf, c),
	})
	addLocal(t, qs, "file:///data.ttl", []*rdf.Triple{
		rdf.NewTriple(x, rdf.RDFType, a),
	})

	result, err := Run(context.Background(), qs, []string{"file:///vocab.ttl"}, []string{"file:///data.ttl"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The user's assertion and its entailments through the vocabulary
	// are wanted.
	for _, want := range []*rdf.Triple{
		rdf.NewTriple(x, rdf.RDFType, a),
		rdf.NewTriple(x, rdf.RDFType, b),
		rdf.NewTriple(x, rdf.RDFType, c),
	} {
		if !contains(result.CombinedWanted, want) {
			t.Fatalf("expected %v in combined_wanted", want)
		}
	}

	// Triples of the pure vocabulary closure are not.
	for _, unwanted := range []*rdf.Triple{
		rdf.NewTriple(a, rdf.RDFSSubClassOf, b),
		rdf.NewTriple(a, rdf.RDFSSubClassOf, c),
	} {
		if contains(result.CombinedWanted, unwanted) {
			t.Fatalf("reference-closure triple %v leaked into combined_wanted", unwanted)
		}
		if contains(result.CombinedInternal, unwanted) {
			t.Fatalf("reference-closure triple %v leaked into combined_internal", unwanted)
		}
	}
}

func TestVersionOfHeuristicFoldsBlankNodeOntoResource(t *testing.T) {
	qs := newTestStore(t)
	doc := rdf.NewIRI(ex + "Doc")
	title := rdf.NewIRI(ex + "title")
	isVersionOf := rdf.NewIRI("http://purl.org/dc/terms/isVersionOf")

	// Loaded the way the merger loads files, so the blank node gets a
	// store-minted id before the heuristic ever sees it.
	if err := qs.CreateGraph("file:///data.ttl", quadstore.CategoryLocal); err != nil {
		t.Fatalf("CreateGraph: %v", err)
	}
	b := rdf.NewBlankNode("b0")
	if err := qs.BulkAddScoped("file:///data.ttl", []*rdf.Triple{
		rdf.NewTriple(b, isVersionOf, doc),
		rdf.NewTriple(b, title, rdf.NewLiteral("Draft")),
	}); err != nil {
		t.Fatalf("BulkAddScoped: %v", err)
	}

	rule, err := heuristic.NewRegistry().Lookup("dct-version-of-sameas")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	result, err := Run(context.Background(), qs, nil, []string{"file:///data.ttl"}, Options{
		Heuristics: []*heuristic.Heuristic{heuristic.NewProcedural("dct-version-of-sameas", rule)},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The sameAs link must land on the store-minted node, so the
	// reasoner's replication rules fold the blank node's assertions onto
	// the named resource.
	if !contains(result.CombinedWanted, rdf.NewTriple(doc, title, rdf.NewLiteral("Draft"))) {
		t.Fatalf("blank node's title was not folded onto the named resource:\n%v", result.CombinedWanted)
	}
}

func TestContradictionMarkerSurvives(t *testing.T) {
	qs := newTestStore(t)
	x := rdf.NewIRI(ex + "X")
	addLocal(t, qs, "file:///data.ttl", []*rdf.Triple{
		rdf.NewTriple(x, rdf.RDFSSubClassOf, rdf.OWLNothing),
		rdf.NewTriple(rdf.OWLNothing, rdf.RDFSSubClassOf, x),
	})

	result, err := Run(context.Background(), qs, nil, []string{"file:///data.ttl"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !contains(result.CombinedWanted, rdf.NewTriple(x, rdf.RDFSSubClassOf, rdf.OWLNothing)) {
		t.Fatalf("contradiction marker dropped from combined_wanted")
	}
	if contains(result.CombinedWanted, rdf.NewTriple(rdf.OWLNothing, rdf.RDFSSubClassOf, x)) {
		t.Fatalf("banal owl:Nothing subclass direction survived filtering")
	}
}

func TestMonotonicRoundsAndFixedPoint(t *testing.T) {
	qs := newTestStore(t)
	addLocal(t, qs, "file:///data.ttl", whoKnowsWhomTriples())

	before, err := qs.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	result, err := Run(context.Background(), qs, nil, []string{"file:///data.ttl"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	after, err := qs.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if after < before {
		t.Fatalf("store shrank during inference: %d -> %d", before, after)
	}
	if !result.Converged {
		t.Fatalf("expected fixed point")
	}

	// One extra reasoner pass over the converged store adds nothing.
	graphs := append(qs.GraphNamesByCategory(quadstore.CategoryLocal), GraphExternalOWL, GraphFullOWL, GraphHeuristic)
	vFull := view.New(qs, graphs, true)
	extra, err := reasoner.NewRLBackend().Reason(vFull)
	if err != nil {
		t.Fatalf("verification pass: %v", err)
	}
	if len(extra) != 0 {
		t.Fatalf("reported fixed point but an extra round derived %d triples", len(extra))
	}
}

func TestBoundExceededIsNonFatal(t *testing.T) {
	qs := newTestStore(t)
	addLocal(t, qs, "file:///data.ttl", []*rdf.Triple{
		rdf.NewTriple(alice, knows, bob),
	})

	counter := 0
	endless := heuristic.NewProcedural("endless", func(v *view.View) ([]*rdf.Triple, error) {
		counter++
		return []*rdf.Triple{
			rdf.NewTriple(rdf.NewIRI(fmt.Sprintf("%sn%d", ex, counter)), knows, bob),
		}, nil
	})

	result, err := Run(context.Background(), qs, nil, []string{"file:///data.ttl"}, Options{
		Heuristics: []*heuristic.Heuristic{endless},
		Bound:      2,
	})
	if !errors.Is(err, pyerr.ErrBoundExceeded) {
		t.Fatalf("expected BoundExceeded, got %v", err)
	}
	if result == nil {
		t.Fatalf("BoundExceeded must still return the partial-closure result")
	}
	if result.Converged {
		t.Fatalf("result should not report convergence")
	}
	if result.Rounds != 2 {
		t.Fatalf("expected 2 rounds, got %d", result.Rounds)
	}
}

func TestCancellationDiscardsRun(t *testing.T) {
	qs := newTestStore(t)
	addLocal(t, qs, "file:///data.ttl", whoKnowsWhomTriples())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, qs, nil, []string{"file:///data.ttl"}, Options{})
	if !errors.Is(err, pyerr.ErrCancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if result != nil {
		t.Fatalf("cancelled run must not return partial results")
	}
}

func TestMergedArtifactPreservesProvenance(t *testing.T) {
	qs := newTestStore(t)
	addReference(t, qs, "file:///vocab.ttl", []*rdf.Triple{
		rdf.NewTriple(rdf.NewIRI(ex+"A"), rdf.RDFSSubClassOf, rdf.NewIRI(ex+"B")),
	})
	addLocal(t, qs, "file:///data.ttl", []*rdf.Triple{
		rdf.NewTriple(alice, rdf.RDFType, person),
	})

	result, err := Run(context.Background(), qs, []string{"file:///vocab.ttl"}, []string{"file:///data.ttl"}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	graphs := make(map[string]int)
	for _, q := range result.Merged {
		g, ok := q.Graph.(*rdf.IRI)
		if !ok {
			t.Fatalf("merged quad with non-IRI graph: %v", q)
		}
		graphs[g.Value]++
	}
	if graphs["file:///vocab.ttl"] != 1 || graphs["file:///data.ttl"] != 1 {
		t.Fatalf("provenance lost in merged artifact: %v", graphs)
	}
}
