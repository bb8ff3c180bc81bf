// Package config loads and validates the pythinfer.yaml project file.
// The pipeline core only ever sees the resolved Project value this
// package produces.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robertmuil/pythinfer/internal/pyerr"
	"gopkg.in/yaml.v3"
)

// FileName is the canonical project file name discovery looks for.
const FileName = "pythinfer.yaml"

// Project is the decoded and validated configuration for one run.
type Project struct {
	Name       string     `yaml:"name"`
	BaseFolder string     `yaml:"base_folder"`
	Data       Data       `yaml:"data"`
	Heuristics Heuristics `yaml:"heuristics"`
	Reasoner   Reasoner   `yaml:"reasoner"`
	Output     Output     `yaml:"output"`
	Iteration  Iteration  `yaml:"iteration"`

	// Path is where the config was loaded from; informational.
	Path string `yaml:"-"`
}

type Data struct {
	Local     []string `yaml:"local"`
	Reference []string `yaml:"reference"`
}

type Heuristics struct {
	SPARQL []string `yaml:"sparql"`
	Python []string `yaml:"python"`
}

// Reasoner selects the inference backend. An empty Backend means the
// in-process rl-inprocess engine; Command and Timeout apply only to the
// external-cli variant.
type Reasoner struct {
	Backend string   `yaml:"backend"`
	Command []string `yaml:"command"`
	Timeout string   `yaml:"timeout"`

	// timeout is Timeout parsed during Load.
	timeout time.Duration
}

// TimeoutDuration returns the parsed external-command timeout; zero
// means no timeout.
func (r Reasoner) TimeoutDuration() time.Duration { return r.timeout }

type Output struct {
	Folder       string   `yaml:"folder"`
	ExtraFormats []string `yaml:"extra_formats"`
}

type Iteration struct {
	Bound int `yaml:"bound"`
}

// Load reads and decodes path, then applies the defaulting rules:
// base_folder defaults to the config file's directory, output.folder to
// <base_folder>/derived, iteration.bound to 16.
func Load(path string) (*Project, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, pyerr.NewConfigError(path, err)
	}
	var p Project
	if err := yaml.Unmarshal(content, &p); err != nil {
		return nil, pyerr.NewConfigError(path, err)
	}
	p.Path = path

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, pyerr.NewConfigError(path, err)
	}
	if p.BaseFolder == "" {
		p.BaseFolder = filepath.Dir(abs)
	} else if !filepath.IsAbs(p.BaseFolder) {
		p.BaseFolder = filepath.Join(filepath.Dir(abs), p.BaseFolder)
	}
	if p.Output.Folder == "" {
		p.Output.Folder = filepath.Join(p.BaseFolder, "derived")
	} else if !filepath.IsAbs(p.Output.Folder) {
		p.Output.Folder = filepath.Join(p.BaseFolder, p.Output.Folder)
	}
	if p.Iteration.Bound == 0 {
		p.Iteration.Bound = 16
	}
	if p.Iteration.Bound < 0 {
		return nil, pyerr.NewConfigError(path, fmt.Errorf("iteration.bound must be positive, got %d", p.Iteration.Bound))
	}
	if len(p.Data.Local) == 0 && len(p.Data.Reference) == 0 {
		return nil, pyerr.NewConfigError(path, fmt.Errorf("no data files configured (data.local / data.reference)"))
	}
	if p.Reasoner.Backend == "external-cli" && len(p.Reasoner.Command) == 0 {
		return nil, pyerr.NewConfigError(path, fmt.Errorf("reasoner.backend external-cli needs reasoner.command"))
	}
	if p.Reasoner.Timeout != "" {
		d, err := time.ParseDuration(p.Reasoner.Timeout)
		if err != nil {
			return nil, pyerr.NewConfigError(path, fmt.Errorf("bad reasoner.timeout: %w", err))
		}
		p.Reasoner.timeout = d
	}
	return &p, nil
}

// Resolve expands configured paths and glob patterns against the
// project's base folder, returning absolute paths sorted for stable
// iteration order.
func (p *Project) Resolve(patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(p.BaseFolder, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, pyerr.NewConfigError(p.Path, fmt.Errorf("bad pattern %q: %w", pattern, err))
		}
		if matches == nil {
			// A pattern with no wildcard names a file that must exist; a
			// wildcard pattern may legitimately match nothing.
			if !hasGlobMeta(pattern) {
				return nil, pyerr.NewConfigError(p.Path, fmt.Errorf("no file matches %q", pattern))
			}
			continue
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}

func hasGlobMeta(s string) bool {
	for _, c := range s {
		if c == '*' || c == '?' || c == '[' {
			return true
		}
	}
	return false
}

// ResolveHeuristicFiles expands the configured .rq paths, preserving
// configured order; heuristics are order-sensitive.
func (p *Project) ResolveHeuristicFiles() ([]string, error) {
	var out []string
	for _, path := range p.Heuristics.SPARQL {
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.BaseFolder, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, pyerr.NewConfigError(p.Path, fmt.Errorf("heuristic query %q: %w", path, err))
		}
		out = append(out, path)
	}
	return out, nil
}
