package sparql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/robertmuil/pythinfer/internal/quadstore"
	"github.com/robertmuil/pythinfer/internal/rdf"
	"github.com/robertmuil/pythinfer/internal/view"
)

// Binding maps variable names to the terms they are bound to in one
// solution.
type Binding map[string]rdf.Term

// Evaluator runs parsed queries against a restricted view. All reads go
// through View.All, so the evaluator sees exactly the union of the
// view's whitelisted graphs and nothing else.
type Evaluator struct {
	view *view.View
}

func NewEvaluator(v *view.View) *Evaluator {
	return &Evaluator{view: v}
}

// Select returns the solution bindings for a SELECT query, restricted to
// the projected variables (all bound variables for SELECT *).
func (e *Evaluator) Select(q *Query) ([]Binding, error) {
	if q.Type != QueryTypeSelect {
		return nil, fmt.Errorf("not a SELECT query")
	}
	solutions, err := e.solve(q.Where)
	if err != nil {
		return nil, err
	}
	if q.Variables == nil {
		out := make([]Binding, len(solutions))
		for i, sol := range solutions {
			projected := make(Binding, len(sol))
			for name, term := range sol {
				if !strings.HasPrefix(name, "\x00") {
					projected[name] = term
				}
			}
			out[i] = projected
		}
		return out, nil
	}
	out := make([]Binding, len(solutions))
	for i, sol := range solutions {
		projected := make(Binding, len(q.Variables))
		for _, v := range q.Variables {
			if term, ok := sol[v.Name]; ok {
				projected[v.Name] = term
			}
		}
		out[i] = projected
	}
	return out, nil
}

// Ask reports whether the WHERE pattern has at least one solution.
func (e *Evaluator) Ask(q *Query) (bool, error) {
	if q.Type != QueryTypeAsk {
		return false, fmt.Errorf("not an ASK query")
	}
	solutions, err := e.solve(q.Where)
	if err != nil {
		return false, err
	}
	return len(solutions) > 0, nil
}

// Construct instantiates the template once per solution, skipping any
// instantiation that is not a well-formed triple (unbound variable,
// literal subject, or literal/blank predicate). The result is
// deduplicated and sorted.
func (e *Evaluator) Construct(q *Query) ([]*rdf.Triple, error) {
	if q.Type != QueryTypeConstruct {
		return nil, fmt.Errorf("not a CONSTRUCT query")
	}
	solutions, err := e.solve(q.Where)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]*rdf.Triple)
	var keys []string
	for _, sol := range solutions {
		for _, tp := range q.Template {
			s := substitute(tp.Subject, sol)
			p := substitute(tp.Predicate, sol)
			o := substitute(tp.Object, sol)
			if s == nil || p == nil || o == nil {
				continue
			}
			if s.Type() == rdf.TermTypeLiteral || p.Type() != rdf.TermTypeIRI {
				continue
			}
			t := rdf.NewTriple(s, p, o)
			key := t.String()
			if _, ok := seen[key]; !ok {
				seen[key] = t
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	out := make([]*rdf.Triple, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out, nil
}

func substitute(tv *TermOrVariable, sol Binding) rdf.Term {
	if tv.Variable != nil {
		return sol[tv.Variable.Name]
	}
	return tv.Term
}

// solve joins the basic graph pattern left to right, then applies the
// filters.
func (e *Evaluator) solve(where *WhereClause) ([]Binding, error) {
	solutions := []Binding{{}}
	for _, tp := range where.Patterns {
		var next []Binding
		for _, sol := range solutions {
			extended, err := e.matchPattern(tp, sol)
			if err != nil {
				return nil, err
			}
			next = append(next, extended...)
		}
		solutions = next
		if len(solutions) == 0 {
			break
		}
	}

	var out []Binding
	for _, sol := range solutions {
		keep := true
		for _, f := range where.Filters {
			ok, err := evalFilter(f, sol)
			if err != nil {
				return nil, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, sol)
		}
	}
	return out, nil
}

// matchPattern extends sol with every triple matching tp under the
// current bindings.
func (e *Evaluator) matchPattern(tp *TriplePattern, sol Binding) ([]Binding, error) {
	pattern := quadstore.Pattern{
		Subject:   boundTerm(tp.Subject, sol),
		Predicate: boundTerm(tp.Predicate, sol),
		Object:    boundTerm(tp.Object, sol),
	}
	triples, err := e.view.All(pattern)
	if err != nil {
		return nil, err
	}

	var out []Binding
	for _, t := range triples {
		extended := bind(tp, t, sol)
		if extended != nil {
			out = append(out, extended)
		}
	}
	return out, nil
}

// boundTerm resolves a pattern position to a concrete term if it is a
// constant or an already-bound variable, nil (wildcard) otherwise. A
// query blank node counts as a variable.
func boundTerm(tv *TermOrVariable, sol Binding) rdf.Term {
	if tv.Variable != nil {
		return sol[tv.Variable.Name]
	}
	if b, ok := tv.Term.(*rdf.BlankNode); ok {
		return sol["\x00bnode:"+b.ID]
	}
	return tv.Term
}

// bind returns sol extended with tp's unbound variables bound against t,
// or nil if t conflicts with an existing binding. Blank nodes in query
// patterns act as variables scoped to the query, per SPARQL semantics.
func bind(tp *TriplePattern, t *rdf.Triple, sol Binding) Binding {
	extended := make(Binding, len(sol)+3)
	for k, v := range sol {
		extended[k] = v
	}
	positions := []struct {
		tv   *TermOrVariable
		term rdf.Term
	}{
		{tp.Subject, t.Subject},
		{tp.Predicate, t.Predicate},
		{tp.Object, t.Object},
	}
	for _, pos := range positions {
		if pos.tv.Variable != nil {
			if existing, ok := extended[pos.tv.Variable.Name]; ok {
				if !existing.Equals(pos.term) {
					return nil
				}
				continue
			}
			extended[pos.tv.Variable.Name] = pos.term
			continue
		}
		if b, ok := pos.tv.Term.(*rdf.BlankNode); ok {
			key := "\x00bnode:" + b.ID
			if existing, ok := extended[key]; ok {
				if !existing.Equals(pos.term) {
					return nil
				}
				continue
			}
			extended[key] = pos.term
			continue
		}
		if !pos.tv.Term.Equals(pos.term) {
			return nil
		}
	}
	return extended
}

func evalFilter(f *Filter, sol Binding) (bool, error) {
	left := substitute(f.Left, sol)
	right := substitute(f.Right, sol)
	if left == nil || right == nil {
		return false, nil
	}

	if ln, lok := numericValue(left); lok {
		if rn, rok := numericValue(right); rok {
			return compareNumeric(f.Op, ln, rn), nil
		}
	}

	switch f.Op {
	case FilterOpEq:
		return left.Equals(right), nil
	case FilterOpNe:
		return !left.Equals(right), nil
	default:
		ll, lok := left.(*rdf.Literal)
		rl, rok := right.(*rdf.Literal)
		if !lok || !rok {
			return false, fmt.Errorf("ordering comparison needs literals, got %s and %s", left, right)
		}
		return compareOrdered(f.Op, ll.Lexical, rl.Lexical), nil
	}
}

func numericValue(t rdf.Term) (float64, bool) {
	l, ok := t.(*rdf.Literal)
	if !ok || l.Datatype == nil {
		return 0, false
	}
	switch l.Datatype.Value {
	case rdf.XSDInteger.Value, rdf.XSDDouble.Value,
		"http://www.w3.org/2001/XMLSchema#decimal",
		"http://www.w3.org/2001/XMLSchema#float",
		"http://www.w3.org/2001/XMLSchema#long",
		"http://www.w3.org/2001/XMLSchema#int":
		v, err := strconv.ParseFloat(l.Lexical, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

func compareNumeric(op FilterOp, a, b float64) bool {
	switch op {
	case FilterOpEq:
		return a == b
	case FilterOpNe:
		return a != b
	case FilterOpLt:
		return a < b
	case FilterOpLe:
		return a <= b
	case FilterOpGt:
		return a > b
	case FilterOpGe:
		return a >= b
	}
	return false
}

func compareOrdered(op FilterOp, a, b string) bool {
	switch op {
	case FilterOpLt:
		return a < b
	case FilterOpLe:
		return a <= b
	case FilterOpGt:
		return a > b
	case FilterOpGe:
		return a >= b
	}
	return false
}
