// Package merger loads categorized file lists into the quad store:
// each file is parsed into its own named graph keyed by the file's
// absolute path, preserving per-file provenance, and category
// membership is recorded for the pipeline's view construction.
package merger

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/robertmuil/pythinfer/internal/pyerr"
	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
)

// Input names one file destined for a given category.
type Input struct {
	Path     string
	Category quadstore.Category
}

// Result records, for each category, the graph names loaded under it:
// the inverse index the fixed-point driver needs to build its initial
// views.
type Result struct {
	GraphsByCategory map[quadstore.Category][]string
}

// Merge parses every input and loads it into its own named graph in
// store, named file://<absolute-path>. Any parse failure aborts the
// whole batch before anything is committed.
func Merge(store *quadstore.QuadStore, inputs []Input, readFile func(path string) (string, error)) (*Result, error) {
	type loaded struct {
		graph    string
		category quadstore.Category
		triples  []*rdf.Triple
	}
	var batch []loaded

	for _, in := range inputs {
		abs, err := filepath.Abs(in.Path)
		if err != nil {
			return nil, pyerr.NewParseError(in.Path, "", 0, 0, err)
		}
		content, err := readFile(in.Path)
		if err != nil {
			return nil, pyerr.NewParseError(in.Path, "", 0, 0, err)
		}
		format := detectFormat(in.Path, content)
		triples, err := parse(format, content)
		if err != nil {
			return nil, pyerr.NewParseError(in.Path, format, 0, 0, err)
		}
		graph := "file://" + abs
		batch = append(batch, loaded{graph: graph, category: in.Category, triples: triples})
	}

	result := &Result{GraphsByCategory: make(map[quadstore.Category][]string)}
	for _, l := range batch {
		if err := store.CreateGraph(l.graph, l.category); err != nil {
			return nil, err
		}
		if err := store.BulkAddScoped(l.graph, l.triples); err != nil {
			return nil, err
		}
		result.GraphsByCategory[l.category] = append(result.GraphsByCategory[l.category], l.graph)
	}
	return result, nil
}

// detectFormat infers a parser from the file extension, falling back to
// content sniffing for extensionless inputs.
func detectFormat(path, content string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt", ".nq":
		return "nquads"
	case ".ttl":
		return "turtle"
	case ".trig":
		return "trig"
	}
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "@prefix") || strings.HasPrefix(trimmed, "@base") || strings.HasPrefix(trimmed, "PREFIX") {
		return "turtle"
	}
	return "nquads"
}

// parse produces a plain triple set regardless of whether the source
// format is quad-capable: the merger always assigns its own file-derived
// graph name, so any graph component the source syntax carried (e.g. a
// TriG file's internal named graphs) collapses into triples here.
func parse(format, content string) ([]*rdf.Triple, error) {
	switch format {
	case "nquads":
		return rdf.NewNQuadsParser(content).ParseTriples()
	case "turtle":
		return rdf.NewTurtleParser(content).ParseTriples()
	case "trig":
		quads, err := rdf.NewTriGParser(content).Parse()
		if err != nil {
			return nil, err
		}
		triples := make([]*rdf.Triple, len(quads))
		for i, q := range quads {
			triples[i] = q.Triple()
		}
		return triples, nil
	default:
		return nil, fmt.Errorf("unrecognized RDF format %q", format)
	}
}
