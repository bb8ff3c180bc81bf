// Package export materializes the pipeline's logical artifacts to files
// in the configured formats. The quad-preserving TriG output is always
// written since it doubles as the cache format; flat formats discard
// graph names.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/piprate/json-gold/ld"
	"github.com/robertmuil/pythinfer/internal/rdf"
)

// Artifact is one named exportable graph-set.
type Artifact struct {
	Name  string
	Quads []*rdf.Quad
}

// FromTriples wraps a flat triple set as an artifact whose quads all
// carry graph as their graph name.
func FromTriples(name, graph string, triples []*rdf.Triple) Artifact {
	quads := make([]*rdf.Quad, len(triples))
	g := rdf.NewIRI(graph)
	for i, t := range triples {
		quads[i] = rdf.NewQuad(t.Subject, t.Predicate, t.Object, g)
	}
	return Artifact{Name: name, Quads: quads}
}

// Extensions maps each supported format to its file extension.
var Extensions = map[string]string{
	"trig":     ".trig",
	"nquads":   ".nq",
	"ntriples": ".nt",
	"turtle":   ".ttl",
	"jsonld":   ".jsonld",
}

// Write serializes every artifact in every requested format into folder,
// creating it if needed. "trig" is always written regardless of formats.
// Returns the list of files written.
func Write(folder string, artifacts []Artifact, formats []string) ([]string, error) {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, err
	}

	wanted := map[string]bool{"trig": true}
	for _, f := range formats {
		if _, ok := Extensions[f]; !ok {
			return nil, fmt.Errorf("unsupported export format %q", f)
		}
		wanted[f] = true
	}

	formatOrder := make([]string, 0, len(wanted))
	for f := range wanted {
		formatOrder = append(formatOrder, f)
	}
	sort.Strings(formatOrder)

	var written []string
	for _, a := range artifacts {
		for _, format := range formatOrder {
			content, err := serialize(format, a.Quads)
			if err != nil {
				return nil, fmt.Errorf("serializing %s as %s: %w", a.Name, format, err)
			}
			path := filepath.Join(folder, a.Name+Extensions[format])
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return nil, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func serialize(format string, quads []*rdf.Quad) (string, error) {
	switch format {
	case "trig":
		return rdf.WriteTriG(quads), nil
	case "nquads":
		return rdf.WriteNQuads(quads), nil
	case "ntriples", "turtle":
		// Flat formats discard the graph name. N-Triples is also valid
		// Turtle, so both formats share the serializer.
		flat := make([]*rdf.Quad, len(quads))
		for i, q := range quads {
			flat[i] = rdf.NewQuad(q.Subject, q.Predicate, q.Object, nil)
		}
		return rdf.WriteNQuads(flat), nil
	case "jsonld":
		return writeJSONLD(quads)
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

// writeJSONLD converts quads into a json-gold RDF dataset and runs the
// standard fromRDF algorithm over it.
func writeJSONLD(quads []*rdf.Quad) (string, error) {
	dataset := ld.NewRDFDataset()
	for _, q := range quads {
		graph := "@default"
		if q.Graph != nil {
			if g, ok := q.Graph.(*rdf.IRI); ok {
				graph = g.Value
			}
		}
		s, err := toNode(q.Subject)
		if err != nil {
			return "", err
		}
		p, err := toNode(q.Predicate)
		if err != nil {
			return "", err
		}
		o, err := toNode(q.Object)
		if err != nil {
			return "", err
		}
		dataset.Graphs[graph] = append(dataset.Graphs[graph], ld.NewQuad(s, p, o, graph))
	}

	api := ld.NewJsonLdApi()
	opts := ld.NewJsonLdOptions("")
	doc, err := api.FromRDF(dataset, opts)
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

func toNode(term rdf.Term) (ld.Node, error) {
	switch t := term.(type) {
	case *rdf.IRI:
		return ld.NewIRI(t.Value), nil
	case *rdf.BlankNode:
		return ld.NewBlankNode("_:" + t.ID), nil
	case *rdf.Literal:
		datatype := ""
		if t.Datatype != nil {
			datatype = t.Datatype.Value
		}
		return ld.NewLiteral(t.Lexical, datatype, t.Language), nil
	default:
		return nil, fmt.Errorf("unsupported term %v", term)
	}
}
