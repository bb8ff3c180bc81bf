package reasoner

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/robertmuil/pythinfer/internal/view"
)

// ExternalCLIBackend shells out to a configured RDF-inference command
// (e.g. a Jena riot-style invocation), feeding it the view's triples as
// N-Quads on stdin and parsing its stdout as N-Quads. An external
// command is retried exactly once on failure; in-process backends never
// retry.
type ExternalCLIBackend struct {
	Command []string
	Timeout time.Duration
}

func NewExternalCLIBackend(command []string, timeout time.Duration) *ExternalCLIBackend {
	return &ExternalCLIBackend{Command: command, Timeout: timeout}
}

func (b *ExternalCLIBackend) Name() string { return "external-cli" }

func (b *ExternalCLIBackend) Reason(v *view.View) ([]*rdf.Triple, error) {
	triples, err := v.All(quadstore.Pattern{})
	if err != nil {
		return nil, err
	}
	input := triplesToNQuads(triples)

	out, err := b.run(input)
	if err != nil {
		// Subprocesses get one retry; transient failures are common.
		out, err = b.run(input)
		if err != nil {
			return nil, err
		}
	}

	parsed, err := rdf.NewNQuadsParser(out).ParseTriples()
	if err != nil {
		return nil, err
	}

	existing := make(map[string]bool, len(triples))
	for _, t := range triples {
		existing[t.String()] = true
	}
	var delta []*rdf.Triple
	for _, t := range parsed {
		if !existing[t.String()] {
			delta = append(delta, t)
		}
	}
	return delta, nil
}

func (b *ExternalCLIBackend) run(input string) (string, error) {
	ctx := context.Background()
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, b.Command[0], b.Command[1:]...)
	cmd.Stdin = strings.NewReader(input)
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func triplesToNQuads(triples []*rdf.Triple) string {
	quads := make([]*rdf.Quad, len(triples))
	for i, t := range triples {
		quads[i] = rdf.NewQuad(t.Subject, t.Predicate, t.Object, nil)
	}
	return rdf.WriteNQuads(quads)
}
