// Package pipeline implements the fixed-point driver: the staged,
// iterated computation alternating the reasoner backend and the
// configured heuristics until no new triples appear or the round bound
// is hit, then deriving the exportable artifacts through the filter
// chain.
package pipeline

import (
	"context"
	"log"

	"github.com/robertmuil/pythinfer/internal/filter"
	"github.com/robertmuil/pythinfer/internal/heuristic"
	"github.com/robertmuil/pythinfer/internal/pyerr"
	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/robertmuil/pythinfer/internal/reasoner"
	"github.com/robertmuil/pythinfer/internal/view"
)

// Derived graph names. Source graphs are named by their file:// IRIs;
// everything the pipeline itself produces lives under a stable synthetic
// IRI namespace.
const (
	GraphExternalOWL  = "urn:pythinfer:derived:inferences_external_owl"
	GraphFullOWL      = "urn:pythinfer:derived:inferences_full_owl"
	GraphHeuristic    = "urn:pythinfer:derived:inferences_heuristic"
	ArtifactMerged    = "urn:pythinfer:derived:merged"
	ArtifactFull      = "urn:pythinfer:derived:combined_full"
	ArtifactInternal  = "urn:pythinfer:derived:combined_internal"
	ArtifactWanted    = "urn:pythinfer:derived:combined_wanted"
	DefaultRoundBound = 16
)

// State is the driver's per-round state machine.
type State byte

const (
	StateReady State = iota + 1
	StateReasoning
	StateHeuristics
	StateCheck
	StateDone
	StateBoundExceeded
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateReasoning:
		return "REASONING"
	case StateHeuristics:
		return "HEURISTICS"
	case StateCheck:
		return "CHECK"
	case StateDone:
		return "DONE"
	case StateBoundExceeded:
		return "BOUND_EXCEEDED"
	default:
		return "UNKNOWN"
	}
}

// Options configures one pipeline run.
type Options struct {
	Backend    reasoner.Backend
	Heuristics []*heuristic.Heuristic
	// Bound is the maximum number of reason+heuristics rounds; zero
	// means DefaultRoundBound.
	Bound int
}

// Result holds the four exportable artifacts plus convergence
// diagnostics.
type Result struct {
	Rounds    int
	Converged bool

	// Merged is the post-merge dataset: every source graph's triples,
	// with provenance, before any inference.
	Merged []*rdf.Quad
	// CombinedFull is local assertions plus full-run entailments and
	// heuristic output, with reference graphs and reference-only
	// entailments excluded.
	CombinedFull []*rdf.Triple
	// CombinedInternal is the same set as CombinedFull; it exists as a
	// distinct artifact so the two can diverge without changing the
	// export contract.
	CombinedInternal []*rdf.Triple
	// CombinedWanted is CombinedFull minus reference-closure triples,
	// run through the filter chain.
	CombinedWanted []*rdf.Triple
}

// Run drives the full inference pipeline over a merged store. reference
// and local are the graph names the merger created in each category. ctx
// is checked between rounds and between heuristics; cancellation
// discards all partial results.
func Run(ctx context.Context, store *quadstore.QuadStore, reference, local []string, opts Options) (*Result, error) {
	bound := opts.Bound
	if bound <= 0 {
		bound = DefaultRoundBound
	}
	backend := opts.Backend
	if backend == nil {
		backend = reasoner.NewRLBackend()
	}

	for _, g := range []string{GraphExternalOWL, GraphFullOWL, GraphHeuristic} {
		if err := store.CreateGraph(g, quadstore.CategoryDerived); err != nil {
			return nil, err
		}
	}

	// Stage 1: reference-only inference, so its parasitic closure can be
	// subtracted from the combined result later.
	vRef := view.New(store, reference, true)
	extTarget := view.New(store, []string{GraphExternalOWL}, false)
	if _, err := reasoner.Apply(backend, vRef, extTarget, GraphExternalOWL); err != nil {
		return nil, pyerr.NewBackendError(backend.Name(), err)
	}

	// Stage 2: the full view every round reads and writes through.
	fullGraphs := append(append([]string{}, reference...), local...)
	fullGraphs = append(fullGraphs, GraphExternalOWL, GraphFullOWL, GraphHeuristic)
	vFull := view.New(store, fullGraphs, true)
	owlTarget := view.New(store, []string{GraphFullOWL}, false)
	heurTarget := view.New(store, []string{GraphHeuristic}, false)

	state := StateReady
	rounds := 0
	lastDelta := 0
	for rounds < bound {
		if err := ctx.Err(); err != nil {
			return nil, pyerr.NewCancelled("round " + state.String())
		}
		before, err := store.Count()
		if err != nil {
			return nil, err
		}

		state = StateReasoning
		if _, err := reasoner.Apply(backend, vFull, owlTarget, GraphFullOWL); err != nil {
			return nil, pyerr.NewBackendError(backend.Name(), err)
		}

		state = StateHeuristics
		for _, h := range opts.Heuristics {
			if err := ctx.Err(); err != nil {
				return nil, pyerr.NewCancelled("heuristic " + h.ID)
			}
			if _, err := heuristic.Apply(h, vFull, heurTarget, GraphHeuristic); err != nil {
				return nil, err
			}
		}

		state = StateCheck
		rounds++
		after, err := store.Count()
		if err != nil {
			return nil, err
		}
		lastDelta = after - before
		if lastDelta == 0 {
			state = StateDone
			break
		}
		state = StateReady
	}

	result, err := artifacts(store, reference, local)
	if err != nil {
		return nil, err
	}
	result.Rounds = rounds
	result.Converged = state == StateDone

	if !result.Converged {
		log.Printf("pipeline: no convergence after %d rounds (last round added %d triples); exporting partial closure", rounds, lastDelta)
		return result, pyerr.NewBoundExceeded(rounds)
	}
	return result, nil
}

// artifacts derives the four exportable sets from the store's final
// state.
func artifacts(store *quadstore.QuadStore, reference, local []string) (*Result, error) {
	var merged []*rdf.Quad
	for _, g := range append(append([]string{}, reference...), local...) {
		triples, err := store.Triples(g, quadstore.Pattern{})
		if err != nil {
			return nil, err
		}
		for _, t := range triples {
			merged = append(merged, rdf.NewQuad(t.Subject, t.Predicate, t.Object, rdf.NewIRI(g)))
		}
	}

	combinedGraphs := append(append([]string{}, local...), GraphFullOWL, GraphHeuristic)
	vCombined := view.New(store, combinedGraphs, true)
	combined, err := vCombined.All(quadstore.Pattern{})
	if err != nil {
		return nil, err
	}

	external, err := store.Triples(GraphExternalOWL, quadstore.Pattern{})
	if err != nil {
		return nil, err
	}
	wanted := filter.Apply(quadstore.Difference(combined, external))

	return &Result{
		Merged:           merged,
		CombinedFull:     combined,
		CombinedInternal: combined,
		CombinedWanted:   wanted,
	}, nil
}
