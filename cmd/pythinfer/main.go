package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/robertmuil/pythinfer/internal/config"
	"github.com/robertmuil/pythinfer/internal/discover"
	"github.com/robertmuil/pythinfer/internal/export"
	"github.com/robertmuil/pythinfer/internal/heuristic"
	"github.com/robertmuil/pythinfer/internal/merger"
	"github.com/robertmuil/pythinfer/internal/pipeline"
	"github.com/robertmuil/pythinfer/internal/pyerr"
	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/robertmuil/pythinfer/internal/reasoner"
	"github.com/robertmuil/pythinfer/internal/sparql"
	"github.com/robertmuil/pythinfer/internal/view"
)

const (
	exitOK            = 0
	exitError         = 2
	exitBoundExceeded = 3
)

func main() {
	args := os.Args[1:]
	noCreate := false
	var rest []string
	for _, a := range args {
		if a == "--no-create" {
			noCreate = true
			continue
		}
		rest = append(rest, a)
	}

	if len(rest) < 1 {
		usage()
		os.Exit(exitError)
	}

	switch rest[0] {
	case "create":
		os.Exit(runCreate())
	case "merge":
		os.Exit(runMerge(noCreate))
	case "infer":
		os.Exit(runInfer(noCreate))
	case "query":
		if len(rest) < 2 {
			fmt.Println("Usage: pythinfer query <sparql-query>")
			os.Exit(exitError)
		}
		os.Exit(runQuery(noCreate, rest[1]))
	default:
		fmt.Printf("Unknown command: %s\n", rest[0])
		usage()
		os.Exit(exitError)
	}
}

func usage() {
	fmt.Println("Usage: pythinfer [--no-create] <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  create       - discover RDF files here and write a pythinfer.yaml")
	fmt.Println("  merge        - merge configured inputs, export the merged dataset")
	fmt.Println("  infer        - run the full inference pipeline, export all artifacts")
	fmt.Println("  query <q>    - run inference, then a SPARQL query over the result")
}

// runCreate scans the current directory for RDF files and writes a
// minimal project file treating them all as local data.
func runCreate() int {
	cwd, err := os.Getwd()
	if err != nil {
		log.Printf("create: %v", err)
		return exitError
	}
	files, err := discover.ScanRDFFiles(cwd)
	if err != nil {
		log.Printf("create: %v", err)
		return exitError
	}
	if len(files) == 0 {
		log.Printf("create: no RDF files found in %s", cwd)
		return exitError
	}

	path := filepath.Join(cwd, config.FileName)
	f, err := os.Create(path)
	if err != nil {
		log.Printf("create: %v", err)
		return exitError
	}
	defer f.Close()

	fmt.Fprintf(f, "name: %s\n", filepath.Base(cwd))
	fmt.Fprintln(f, "data:")
	fmt.Fprintln(f, "  local:")
	for _, file := range files {
		fmt.Fprintf(f, "    - %s\n", file)
	}
	fmt.Printf("wrote %s with %d local file(s)\n", path, len(files))
	return exitOK
}

// loadProject discovers and loads the project file, creating one first
// if none exists and noCreate is unset.
func loadProject(noCreate bool) (*config.Project, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path, err := discover.FindProject(cwd, config.FileName)
	if errors.Is(err, discover.ErrNotFound) {
		if noCreate {
			return nil, err
		}
		if code := runCreate(); code != exitOK {
			return nil, err
		}
		path, err = discover.FindProject(cwd, config.FileName)
	}
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// mergeProject loads every configured input into a fresh store.
func mergeProject(project *config.Project) (*quadstore.QuadStore, *merger.Result, error) {
	local, err := project.Resolve(project.Data.Local)
	if err != nil {
		return nil, nil, err
	}
	reference, err := project.Resolve(project.Data.Reference)
	if err != nil {
		return nil, nil, err
	}

	var inputs []merger.Input
	for _, p := range reference {
		inputs = append(inputs, merger.Input{Path: p, Category: quadstore.CategoryReference})
	}
	for _, p := range local {
		inputs = append(inputs, merger.Input{Path: p, Category: quadstore.CategoryLocal})
	}

	store, err := quadstore.NewQuadStore()
	if err != nil {
		return nil, nil, err
	}
	result, err := merger.Merge(store, inputs, func(path string) (string, error) {
		content, err := os.ReadFile(path)
		return string(content), err
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, result, nil
}

func mergedArtifact(store *quadstore.QuadStore, result *merger.Result) (export.Artifact, error) {
	var quads []*rdf.Quad
	var graphs []string
	for _, names := range result.GraphsByCategory {
		graphs = append(graphs, names...)
	}
	sort.Strings(graphs)
	for _, g := range graphs {
		triples, err := store.Triples(g, quadstore.Pattern{})
		if err != nil {
			return export.Artifact{}, err
		}
		for _, t := range triples {
			quads = append(quads, rdf.NewQuad(t.Subject, t.Predicate, t.Object, rdf.NewIRI(g)))
		}
	}
	return export.Artifact{Name: "merged", Quads: quads}, nil
}

func runMerge(noCreate bool) int {
	project, err := loadProject(noCreate)
	if err != nil {
		log.Printf("merge: %v", err)
		return exitError
	}
	store, result, err := mergeProject(project)
	if err != nil {
		log.Printf("merge: %v", err)
		return exitError
	}
	defer store.Close()

	artifact, err := mergedArtifact(store, result)
	if err != nil {
		log.Printf("merge: %v", err)
		return exitError
	}
	written, err := export.Write(project.Output.Folder, []export.Artifact{artifact}, project.Output.ExtraFormats)
	if err != nil {
		log.Printf("merge: %v", err)
		return exitError
	}
	for _, path := range written {
		fmt.Println(path)
	}
	return exitOK
}

// loadHeuristics builds the ordered heuristic list from the project:
// SPARQL queries first, then procedural rules, each list in configured
// order.
func loadHeuristics(project *config.Project) ([]*heuristic.Heuristic, error) {
	var out []*heuristic.Heuristic

	files, err := project.ResolveHeuristicFiles()
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		h, err := heuristic.NewSPARQL(filepath.Base(path), string(content))
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}

	registry := heuristic.NewRegistry()
	for _, id := range project.Heuristics.Python {
		rule, err := registry.Lookup(id)
		if err != nil {
			return nil, err
		}
		out = append(out, heuristic.NewProcedural(id, rule))
	}
	return out, nil
}

// runPipeline merges and drives the fixed point, returning the result
// plus a BoundExceeded flag.
func runPipeline(project *config.Project) (*quadstore.QuadStore, *pipeline.Result, bool, error) {
	store, merged, err := mergeProject(project)
	if err != nil {
		return nil, nil, false, err
	}

	heuristics, err := loadHeuristics(project)
	if err != nil {
		store.Close()
		return nil, nil, false, err
	}

	backend, err := reasoner.Select(project.Reasoner.Backend, project.Reasoner.Command, project.Reasoner.TimeoutDuration())
	if err != nil {
		store.Close()
		return nil, nil, false, err
	}

	result, err := pipeline.Run(context.Background(), store,
		merged.GraphsByCategory[quadstore.CategoryReference],
		merged.GraphsByCategory[quadstore.CategoryLocal],
		pipeline.Options{
			Backend:    backend,
			Heuristics: heuristics,
			Bound:      project.Iteration.Bound,
		})
	boundExceeded := false
	if err != nil {
		if !errors.Is(err, pyerr.ErrBoundExceeded) {
			store.Close()
			return nil, nil, false, err
		}
		boundExceeded = true
	}
	return store, result, boundExceeded, nil
}

func runInfer(noCreate bool) int {
	project, err := loadProject(noCreate)
	if err != nil {
		log.Printf("infer: %v", err)
		return exitError
	}
	store, result, boundExceeded, err := runPipeline(project)
	if err != nil {
		log.Printf("infer: %v", err)
		return exitError
	}
	defer store.Close()

	artifacts := []export.Artifact{
		{Name: "merged", Quads: result.Merged},
		export.FromTriples("combined_full", pipeline.ArtifactFull, result.CombinedFull),
		export.FromTriples("combined_internal", pipeline.ArtifactInternal, result.CombinedInternal),
		export.FromTriples("combined_wanted", pipeline.ArtifactWanted, result.CombinedWanted),
	}
	written, err := export.Write(project.Output.Folder, artifacts, project.Output.ExtraFormats)
	if err != nil {
		log.Printf("infer: %v", err)
		return exitError
	}
	for _, path := range written {
		fmt.Println(path)
	}
	if boundExceeded {
		return exitBoundExceeded
	}
	return exitOK
}

func runQuery(noCreate bool, queryText string) int {
	project, err := loadProject(noCreate)
	if err != nil {
		log.Printf("query: %v", err)
		return exitError
	}
	store, result, _, err := runPipeline(project)
	if err != nil {
		log.Printf("query: %v", err)
		return exitError
	}
	defer store.Close()

	// Queries run against combined_wanted, loaded into its own graph.
	if err := store.CreateGraph(pipeline.ArtifactWanted, quadstore.CategoryDerived); err != nil {
		log.Printf("query: %v", err)
		return exitError
	}
	if err := store.BulkAdd(pipeline.ArtifactWanted, result.CombinedWanted); err != nil {
		log.Printf("query: %v", err)
		return exitError
	}
	v := view.New(store, []string{pipeline.ArtifactWanted}, true)

	q, err := sparql.NewParser(queryText).Parse()
	if err != nil {
		log.Printf("query: %v", err)
		return exitError
	}
	eval := sparql.NewEvaluator(v)

	switch q.Type {
	case sparql.QueryTypeSelect:
		bindings, err := eval.Select(q)
		if err != nil {
			log.Printf("query: %v", err)
			return exitError
		}
		for _, b := range bindings {
			names := make([]string, 0, len(b))
			for name := range b {
				names = append(names, name)
			}
			sort.Strings(names)
			for i, name := range names {
				if i > 0 {
					fmt.Print("\t")
				}
				fmt.Printf("?%s=%s", name, b[name])
			}
			fmt.Println()
		}
	case sparql.QueryTypeConstruct:
		triples, err := eval.Construct(q)
		if err != nil {
			log.Printf("query: %v", err)
			return exitError
		}
		for _, t := range triples {
			fmt.Println(t)
		}
	case sparql.QueryTypeAsk:
		ok, err := eval.Ask(q)
		if err != nil {
			log.Printf("query: %v", err)
			return exitError
		}
		fmt.Println(ok)
	}
	return exitOK
}
