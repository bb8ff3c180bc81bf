package rdf

import (
	"fmt"
	"strings"
)

// NQuadsParser parses N-Triples and N-Quads: one statement per line,
// <subject> <predicate> <object> [<graph>] . Graph-less lines (N-Triples)
// parse as quads with a nil graph; the caller assigns them to one.
type NQuadsParser struct {
	input  string
	pos    int
	length int
}

func NewNQuadsParser(input string) *NQuadsParser {
	return &NQuadsParser{input: input, length: len(input)}
}

// ParseTriples parses the document and discards any graph component,
// returning plain triples. The merger uses this form: it assigns its own
// per-file graph name regardless of what the source carried.
func (p *NQuadsParser) ParseTriples() ([]*Triple, error) {
	quads, err := p.Parse()
	if err != nil {
		return nil, err
	}
	triples := make([]*Triple, len(quads))
	for i, q := range quads {
		triples[i] = q.Triple()
	}
	return triples, nil
}

// Parse parses the document into quads; a line with no fourth term yields
// a quad whose Graph is nil.
func (p *NQuadsParser) Parse() ([]*Quad, error) {
	var quads []*Quad
	line := 1
	for p.pos < p.length {
		start := p.pos
		p.skipLineWhitespace()
		if p.pos >= p.length {
			break
		}
		if p.peek() == '#' || p.peek() == '\n' {
			p.skipToEOL()
			line++
			continue
		}

		terms, err := p.parseTerms()
		if err != nil {
			return nil, fmt.Errorf("nquads parse error at line %d: %w", line, err)
		}
		if len(terms) < 3 {
			return nil, fmt.Errorf("nquads parse error at line %d: expected at least subject predicate object", line)
		}
		var graph Term
		if len(terms) >= 4 {
			graph = terms[3]
		}
		quads = append(quads, NewQuad(terms[0], terms[1], terms[2], graph))

		p.skipLineWhitespace()
		if p.pos < p.length && p.peek() == '.' {
			p.pos++
		} else {
			return nil, fmt.Errorf("nquads parse error at line %d: expected terminating '.'", line)
		}
		p.skipToEOL()
		line += strings.Count(p.input[start:p.pos], "\n")
	}
	return quads, nil
}

func (p *NQuadsParser) parseTerms() ([]Term, error) {
	var terms []Term
	for {
		p.skipLineWhitespace()
		if p.pos >= p.length {
			break
		}
		c := p.peek()
		if c == '.' {
			break
		}
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func (p *NQuadsParser) parseTerm() (Term, error) {
	switch p.peek() {
	case '<':
		return p.parseIRIRef()
	case '_':
		return p.parseBlankNode()
	case '"':
		return p.parseLiteral()
	default:
		return nil, fmt.Errorf("unexpected character %q", p.peek())
	}
}

func (p *NQuadsParser) parseIRIRef() (Term, error) {
	if p.peek() != '<' {
		return nil, fmt.Errorf("expected '<'")
	}
	p.pos++
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != '>' {
		p.pos++
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("unterminated IRI")
	}
	iri := p.input[start:p.pos]
	p.pos++ // consume '>'
	return NewIRI(unescapeUnicode(iri)), nil
}

func (p *NQuadsParser) parseBlankNode() (Term, error) {
	if !strings.HasPrefix(p.input[p.pos:], "_:") {
		return nil, fmt.Errorf("expected blank node label")
	}
	p.pos += 2
	start := p.pos
	for p.pos < p.length && isNameChar(p.input[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return nil, fmt.Errorf("empty blank node label")
	}
	return NewBlankNode(p.input[start:p.pos]), nil
}

func (p *NQuadsParser) parseLiteral() (Term, error) {
	if p.peek() != '"' {
		return nil, fmt.Errorf("expected '\"'")
	}
	p.pos++
	var b strings.Builder
	for p.pos < p.length && p.input[p.pos] != '"' {
		c := p.input[p.pos]
		if c == '\\' {
			p.pos++
			if p.pos >= p.length {
				return nil, fmt.Errorf("unterminated escape in literal")
			}
			b.WriteByte(unescapeChar(p.input[p.pos]))
			p.pos++
			continue
		}
		b.WriteByte(c)
		p.pos++
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("unterminated literal")
	}
	p.pos++ // closing quote
	lexical := b.String()

	if p.pos < p.length && p.input[p.pos] == '@' {
		p.pos++
		start := p.pos
		for p.pos < p.length && (isNameChar(p.input[p.pos]) || p.input[p.pos] == '-') {
			p.pos++
		}
		return NewLangLiteral(lexical, p.input[start:p.pos]), nil
	}
	if p.pos+1 < p.length && p.input[p.pos] == '^' && p.input[p.pos+1] == '^' {
		p.pos += 2
		dt, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return NewTypedLiteral(lexical, dt.(*IRI)), nil
	}
	return NewLiteral(lexical), nil
}

func (p *NQuadsParser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *NQuadsParser) skipLineWhitespace() {
	for p.pos < p.length && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\r') {
		p.pos++
	}
}

func (p *NQuadsParser) skipToEOL() {
	for p.pos < p.length && p.input[p.pos] != '\n' {
		p.pos++
	}
	if p.pos < p.length {
		p.pos++
	}
}

func isNameChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '.'
}

func unescapeChar(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case '"':
		return '"'
	case '\\':
		return '\\'
	default:
		return c
	}
}

// unescapeUnicode is a passthrough: IRIs written by WriteNQuads never
// carry \u escapes, and inputs that do are left verbatim.
func unescapeUnicode(s string) string { return s }

// WriteNQuads serializes quads as N-Quads text, one statement per line,
// using Term.String() for each position (already in N-Triples lexical
// form). A nil Graph is written as a bare triple (N-Triples).
func WriteNQuads(quads []*Quad) string {
	var b strings.Builder
	for _, q := range quads {
		b.WriteString(q.Subject.String())
		b.WriteByte(' ')
		b.WriteString(q.Predicate.String())
		b.WriteByte(' ')
		b.WriteString(q.Object.String())
		if q.Graph != nil {
			b.WriteByte(' ')
			b.WriteString(q.Graph.String())
		}
		b.WriteString(" .\n")
	}
	return b.String()
}
