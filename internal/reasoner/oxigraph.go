package reasoner

import (
	"time"

	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/robertmuil/pythinfer/internal/view"
)

// OxBackend is the optional pyoxigraph-like backend variant: the same RL
// rule set as RLBackend, saturated generation by generation. Each
// generation applies every rule to the whole accumulated triple set and
// collects what is new; saturation stops when a generation adds nothing.
// Rule application is not restricted to the previous generation's
// frontier. Results are identical to RLBackend.
type OxBackend struct{}

func NewOxBackend() *OxBackend { return &OxBackend{} }

func (b *OxBackend) Name() string { return "pyoxigraph-like" }

func (b *OxBackend) Reason(v *view.View) ([]*rdf.Triple, error) {
	triples, err := v.All(quadstore.Pattern{})
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(triples))
	for _, t := range triples {
		existing[t.String()] = true
	}

	all := append([]*rdf.Triple(nil), triples...)
	known := make(map[string]bool, len(all))
	for _, t := range all {
		known[t.String()] = true
	}

	frontier := all
	for len(frontier) > 0 {
		var next []*rdf.Triple
		for _, t := range applyRules(all) {
			key := t.String()
			if !known[key] {
				known[key] = true
				next = append(next, t)
			}
		}
		all = append(all, next...)
		frontier = next
	}

	var out []*rdf.Triple
	for _, t := range all {
		if !existing[t.String()] {
			out = append(out, t)
		}
	}
	return out, nil
}

// Select returns the backend registered under tag, defaulting to the
// in-process RL engine for an empty tag. command and timeout apply only
// to the external-cli variant.
func Select(tag string, command []string, timeout time.Duration) (Backend, error) {
	switch tag {
	case "", "rl-inprocess":
		return NewRLBackend(), nil
	case "pyoxigraph-like":
		return NewOxBackend(), nil
	case "external-cli":
		return NewExternalCLIBackend(command, timeout), nil
	default:
		return nil, &unknownBackendError{tag: tag}
	}
}

type unknownBackendError struct{ tag string }

func (e *unknownBackendError) Error() string {
	return "unknown reasoner backend " + e.tag
}
