// Package sparql implements the SPARQL subset pythinfer needs: CONSTRUCT
// for the heuristic runner, plus SELECT and ASK for the query verb. The
// parser is a recursive-descent scanner in the same shape as the other
// syntax parsers in internal/rdf, and the evaluator is a straightforward
// binding-join over a restricted view.
package sparql

import "github.com/robertmuil/pythinfer/internal/rdf"

// QueryType discriminates the supported query forms.
type QueryType byte

const (
	QueryTypeSelect QueryType = iota + 1
	QueryTypeConstruct
	QueryTypeAsk
)

// Variable is a SPARQL variable (?name).
type Variable struct {
	Name string
}

// TermOrVariable is one position of a triple pattern: exactly one of Term
// or Variable is set.
type TermOrVariable struct {
	Term     rdf.Term
	Variable *Variable
}

func (tv *TermOrVariable) IsVariable() bool { return tv.Variable != nil }

// TriplePattern is a subject/predicate/object pattern over terms and
// variables.
type TriplePattern struct {
	Subject   *TermOrVariable
	Predicate *TermOrVariable
	Object    *TermOrVariable
}

// FilterOp enumerates the comparison operators FILTER supports.
type FilterOp byte

const (
	FilterOpEq FilterOp = iota + 1
	FilterOpNe
	FilterOpLt
	FilterOpLe
	FilterOpGt
	FilterOpGe
)

// Filter is a binary comparison between two operands, each a variable or
// a constant term.
type Filter struct {
	Op    FilterOp
	Left  *TermOrVariable
	Right *TermOrVariable
}

// WhereClause is a basic graph pattern plus its filters.
type WhereClause struct {
	Patterns []*TriplePattern
	Filters  []*Filter
}

// Query is the parsed form of any supported query.
type Query struct {
	Type QueryType

	// Select: projected variables; nil means SELECT *.
	Variables []*Variable

	// Construct: the template instantiated per solution.
	Template []*TriplePattern

	Where *WhereClause
}
