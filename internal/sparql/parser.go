package sparql

import (
	"fmt"
	"strings"

	"github.com/robertmuil/pythinfer/internal/rdf"
)

// Parser is a recursive-descent parser for the supported SPARQL subset:
// PREFIX declarations, SELECT (with optional DISTINCT and a variable
// projection or *), CONSTRUCT, ASK, basic graph patterns with ";" and ","
// shorthand, and FILTER with binary comparisons. Grouping, OPTIONAL,
// UNION, and property paths are not supported; heuristic queries that
// need them should be decomposed or registered as procedural rules.
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
}

func NewParser(input string) *Parser {
	return &Parser{input: input, length: len(input), prefixes: make(map[string]string)}
}

func (p *Parser) Parse() (*Query, error) {
	for {
		p.skipWS()
		if p.matchKeyword("PREFIX") {
			if err := p.parsePrefixDecl(); err != nil {
				return nil, err
			}
			continue
		}
		if p.matchKeyword("BASE") {
			p.skipWS()
			if _, err := p.parseIRIRef(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	p.skipWS()
	switch {
	case p.matchKeyword("SELECT"):
		return p.parseSelect()
	case p.matchKeyword("CONSTRUCT"):
		return p.parseConstruct()
	case p.matchKeyword("ASK"):
		return p.parseAsk()
	default:
		return nil, fmt.Errorf("expected SELECT, CONSTRUCT, or ASK at position %d", p.pos)
	}
}

func (p *Parser) parsePrefixDecl() error {
	p.skipWS()
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		p.pos++
	}
	if p.pos >= p.length {
		return fmt.Errorf("unterminated PREFIX declaration")
	}
	prefix := strings.TrimSpace(p.input[start:p.pos])
	p.pos++ // ':'
	p.skipWS()
	iri, err := p.parseIRIRef()
	if err != nil {
		return err
	}
	p.prefixes[prefix] = iri
	return nil
}

func (p *Parser) parseSelect() (*Query, error) {
	q := &Query{Type: QueryTypeSelect}
	p.skipWS()
	p.matchKeyword("DISTINCT") // results are set-valued either way

	p.skipWS()
	if p.pos < p.length && p.input[p.pos] == '*' {
		p.pos++
	} else {
		for {
			p.skipWS()
			if p.pos >= p.length || p.input[p.pos] != '?' {
				break
			}
			v, err := p.parseVariable()
			if err != nil {
				return nil, err
			}
			q.Variables = append(q.Variables, v)
		}
		if len(q.Variables) == 0 {
			return nil, fmt.Errorf("SELECT needs a projection (* or variables)")
		}
	}

	p.skipWS()
	p.matchKeyword("WHERE")
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = where
	return q, nil
}

func (p *Parser) parseConstruct() (*Query, error) {
	q := &Query{Type: QueryTypeConstruct}
	template, err := p.parseTemplate()
	if err != nil {
		return nil, err
	}
	q.Template = template

	p.skipWS()
	if !p.matchKeyword("WHERE") {
		return nil, fmt.Errorf("expected WHERE after CONSTRUCT template")
	}
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = where
	return q, nil
}

func (p *Parser) parseAsk() (*Query, error) {
	q := &Query{Type: QueryTypeAsk}
	p.skipWS()
	p.matchKeyword("WHERE")
	where, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = where
	return q, nil
}

// parseTemplate parses the { pattern... } block after CONSTRUCT; filters
// are not allowed inside a template.
func (p *Parser) parseTemplate() ([]*TriplePattern, error) {
	p.skipWS()
	if p.pos >= p.length || p.input[p.pos] != '{' {
		return nil, fmt.Errorf("expected '{' to open CONSTRUCT template")
	}
	p.pos++
	var out []*TriplePattern
	for {
		p.skipWS()
		if p.pos >= p.length {
			return nil, fmt.Errorf("unterminated CONSTRUCT template")
		}
		if p.input[p.pos] == '}' {
			p.pos++
			return out, nil
		}
		patterns, err := p.parseTriplePatterns()
		if err != nil {
			return nil, err
		}
		out = append(out, patterns...)
	}
}

func (p *Parser) parseGroupGraphPattern() (*WhereClause, error) {
	p.skipWS()
	if p.pos >= p.length || p.input[p.pos] != '{' {
		return nil, fmt.Errorf("expected '{' to open graph pattern")
	}
	p.pos++
	where := &WhereClause{}
	for {
		p.skipWS()
		if p.pos >= p.length {
			return nil, fmt.Errorf("unterminated graph pattern")
		}
		if p.input[p.pos] == '}' {
			p.pos++
			return where, nil
		}
		if p.matchKeyword("FILTER") {
			f, err := p.parseFilter()
			if err != nil {
				return nil, err
			}
			where.Filters = append(where.Filters, f)
			continue
		}
		patterns, err := p.parseTriplePatterns()
		if err != nil {
			return nil, err
		}
		where.Patterns = append(where.Patterns, patterns...)
	}
}

// parseTriplePatterns parses one subject with its predicate-object list,
// honoring the ";" and "," shorthand.
func (p *Parser) parseTriplePatterns() ([]*TriplePattern, error) {
	subj, err := p.parseTermOrVariable()
	if err != nil {
		return nil, err
	}
	var out []*TriplePattern
	for {
		p.skipWS()
		pred, err := p.parseTermOrVariable()
		if err != nil {
			return nil, err
		}
		for {
			p.skipWS()
			obj, err := p.parseTermOrVariable()
			if err != nil {
				return nil, err
			}
			out = append(out, &TriplePattern{Subject: subj, Predicate: pred, Object: obj})
			p.skipWS()
			if p.pos < p.length && p.input[p.pos] == ',' {
				p.pos++
				continue
			}
			break
		}
		p.skipWS()
		if p.pos < p.length && p.input[p.pos] == ';' {
			p.pos++
			p.skipWS()
			if p.pos < p.length && (p.input[p.pos] == '.' || p.input[p.pos] == '}') {
				break
			}
			continue
		}
		break
	}
	p.skipWS()
	if p.pos < p.length && p.input[p.pos] == '.' {
		p.pos++
	}
	return out, nil
}

// parseFilter parses FILTER ( operand op operand ).
func (p *Parser) parseFilter() (*Filter, error) {
	p.skipWS()
	if p.pos >= p.length || p.input[p.pos] != '(' {
		return nil, fmt.Errorf("expected '(' after FILTER")
	}
	p.pos++

	left, err := p.parseTermOrVariable()
	if err != nil {
		return nil, err
	}
	op, err := p.parseFilterOp()
	if err != nil {
		return nil, err
	}
	right, err := p.parseTermOrVariable()
	if err != nil {
		return nil, err
	}

	p.skipWS()
	if p.pos >= p.length || p.input[p.pos] != ')' {
		return nil, fmt.Errorf("expected ')' to close FILTER")
	}
	p.pos++
	return &Filter{Op: op, Left: left, Right: right}, nil
}

func (p *Parser) parseFilterOp() (FilterOp, error) {
	p.skipWS()
	switch {
	case p.match("!="):
		return FilterOpNe, nil
	case p.match(">="):
		return FilterOpGe, nil
	case p.match("<="):
		return FilterOpLe, nil
	case p.match("="):
		return FilterOpEq, nil
	case p.match(">"):
		return FilterOpGt, nil
	case p.match("<"):
		return FilterOpLt, nil
	default:
		return 0, fmt.Errorf("expected comparison operator at position %d", p.pos)
	}
}

func (p *Parser) parseTermOrVariable() (*TermOrVariable, error) {
	p.skipWS()
	if p.pos >= p.length {
		return nil, fmt.Errorf("unexpected end of query")
	}
	if p.input[p.pos] == '?' || p.input[p.pos] == '$' {
		v, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &TermOrVariable{Variable: v}, nil
	}
	term, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return &TermOrVariable{Term: term}, nil
}

func (p *Parser) parseVariable() (*Variable, error) {
	p.pos++ // '?' or '$'
	start := p.pos
	for p.pos < p.length && isVarChar(p.input[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("empty variable name at position %d", start)
	}
	return &Variable{Name: p.input[start:p.pos]}, nil
}

func (p *Parser) parseTerm() (rdf.Term, error) {
	switch c := p.input[p.pos]; {
	case c == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return rdf.NewIRI(iri), nil
	case c == '"':
		return p.parseLiteral()
	case c == '_':
		return p.parseBlankNode()
	case c == '+' || c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		if p.peekWord("true") {
			p.pos += len("true")
			return rdf.NewBooleanLiteral(true), nil
		}
		if p.peekWord("false") {
			p.pos += len("false")
			return rdf.NewBooleanLiteral(false), nil
		}
		if p.peekWord("a") {
			p.pos++
			return rdf.RDFType, nil
		}
		return p.parsePrefixedName()
	}
}

func (p *Parser) parseIRIRef() (string, error) {
	if p.input[p.pos] != '<' {
		return "", fmt.Errorf("expected '<'")
	}
	p.pos++
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != '>' {
		p.pos++
	}
	if p.pos >= p.length {
		return "", fmt.Errorf("unterminated IRI")
	}
	iri := p.input[start:p.pos]
	p.pos++
	return iri, nil
}

func (p *Parser) parsePrefixedName() (rdf.Term, error) {
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' && !isBoundary(p.input[p.pos]) {
		p.pos++
	}
	if p.pos >= p.length || p.input[p.pos] != ':' {
		return nil, fmt.Errorf("expected prefixed name at position %d", start)
	}
	prefix := p.input[start:p.pos]
	p.pos++
	localStart := p.pos
	for p.pos < p.length && !isBoundary(p.input[p.pos]) {
		p.pos++
	}
	local := p.input[localStart:p.pos]
	ns, ok := p.prefixes[prefix]
	if !ok {
		return nil, fmt.Errorf("unknown prefix %q", prefix)
	}
	return rdf.NewIRI(ns + local), nil
}

func (p *Parser) parseBlankNode() (rdf.Term, error) {
	if !strings.HasPrefix(p.input[p.pos:], "_:") {
		return nil, fmt.Errorf("expected blank node")
	}
	p.pos += 2
	start := p.pos
	for p.pos < p.length && isVarChar(p.input[p.pos]) {
		p.pos++
	}
	return rdf.NewBlankNode(p.input[start:p.pos]), nil
}

func (p *Parser) parseLiteral() (rdf.Term, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < p.length && p.input[p.pos] != '"' {
		c := p.input[p.pos]
		if c == '\\' {
			p.pos++
			if p.pos >= p.length {
				return nil, fmt.Errorf("unterminated escape")
			}
			switch p.input[p.pos] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(p.input[p.pos])
			}
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("unterminated literal")
	}
	p.pos++
	lexical := b.String()

	if p.pos < p.length && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < p.length && (isVarChar(p.input[p.pos]) || p.input[p.pos] == '-') {
			p.pos++
		}
		return rdf.NewLangLiteral(lexical, p.input[start:p.pos]), nil
	}
	if p.pos+1 < p.length && p.input[p.pos] == '^' && p.input[p.pos+1] == '^' {
		p.pos += 2
		p.skipWS()
		dt, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		dtIRI, ok := dt.(*rdf.IRI)
		if !ok {
			return nil, fmt.Errorf("datatype must be an IRI")
		}
		return rdf.NewTypedLiteral(lexical, dtIRI), nil
	}
	return rdf.NewLiteral(lexical), nil
}

func (p *Parser) parseNumber() (rdf.Term, error) {
	start := p.pos
	if p.input[p.pos] == '+' || p.input[p.pos] == '-' {
		p.pos++
	}
	integer := true
	for p.pos < p.length {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if (c == '.' && p.pos+1 < p.length && p.input[p.pos+1] >= '0' && p.input[p.pos+1] <= '9') || c == 'e' || c == 'E' {
			integer = false
			p.pos++
			continue
		}
		break
	}
	lexical := p.input[start:p.pos]
	if lexical == "" || lexical == "+" || lexical == "-" {
		return nil, fmt.Errorf("malformed number at position %d", start)
	}
	if integer {
		return rdf.NewTypedLiteral(lexical, rdf.XSDInteger), nil
	}
	return rdf.NewTypedLiteral(lexical, rdf.XSDDouble), nil
}

func (p *Parser) skipWS() {
	for p.pos < p.length {
		c := p.input[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		if c == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *Parser) matchKeyword(kw string) bool {
	end := p.pos + len(kw)
	if end > p.length {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:end], kw) {
		return false
	}
	if end < p.length && isVarChar(p.input[end]) {
		return false
	}
	p.pos = end
	return true
}

func (p *Parser) match(s string) bool {
	if strings.HasPrefix(p.input[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *Parser) peekWord(kw string) bool {
	end := p.pos + len(kw)
	if end > p.length || p.input[p.pos:end] != kw {
		return false
	}
	return end == p.length || isBoundary(p.input[end])
}

func isVarChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isBoundary(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
		c == '.' || c == ';' || c == ',' || c == '{' || c == '}' || c == '(' || c == ')'
}
