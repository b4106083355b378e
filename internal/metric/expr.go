package metric

import (
	"fmt"
	"strings"
	"unicode"
)

// TagSet is the set of normalized tags an expression is evaluated against.
type TagSet map[string]struct{}

// NewTagSet normalizes tags into a set.
func NewTagSet(tags ...string) TagSet {
	set := TagSet{}
	for _, tag := range tags {
		if normalized := Normalize(tag); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

// Has reports membership.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// TokenKind classifies a recognized tag token.
type TokenKind int

const (
	// TokenOther is a tag that names neither a layer nor a metric.
	TokenOther TokenKind = iota
	// TokenLayer names a metric layer.
	TokenLayer
	// TokenMetric names an individual metric.
	TokenMetric
)

// ClassifyTag returns the normalized tag and its kind.
func ClassifyTag(tag string) (string, TokenKind) {
	normalized := Normalize(tag)
	switch {
	case IsLayer(normalized):
		return normalized, TokenLayer
	case Known(normalized):
		return normalized, TokenMetric
	default:
		return normalized, TokenOther
	}
}

// Expr is a compiled boolean expression over tags.
type Expr interface {
	Eval(tags TagSet) bool
	String() string
}

type trueExpr struct{}

func (trueExpr) Eval(TagSet) bool { return true }
func (trueExpr) String() string   { return "true" }

type tagExpr struct{ tag string }

func (e tagExpr) Eval(tags TagSet) bool { return tags.Has(e.tag) }
func (e tagExpr) String() string        { return "@" + e.tag }

type notExpr struct{ inner Expr }

func (e notExpr) Eval(tags TagSet) bool { return !e.inner.Eval(tags) }
func (e notExpr) String() string        { return "not " + e.inner.String() }

type andExpr struct{ left, right Expr }

func (e andExpr) Eval(tags TagSet) bool { return e.left.Eval(tags) && e.right.Eval(tags) }
func (e andExpr) String() string        { return "(" + e.left.String() + " and " + e.right.String() + ")" }

type orExpr struct{ left, right Expr }

func (e orExpr) Eval(tags TagSet) bool { return e.left.Eval(tags) || e.right.Eval(tags) }
func (e orExpr) String() string        { return "(" + e.left.String() + " or " + e.right.String() + ")" }

// anyOf ORs tags together; an empty list yields nil.
func anyOf(tags []string) Expr {
	var expr Expr
	for _, tag := range tags {
		next := Expr(tagExpr{tag: tag})
		if expr == nil {
			expr = next
			continue
		}
		expr = orExpr{left: expr, right: next}
	}
	return expr
}

// CompileTags turns scenario tags into a selection expression: layer tags are OR'd,
// metric tags are OR'd, and the two groups are AND'ed. Other tags are ignored.
// No layer or metric tags selects every metric.
func CompileTags(tags []string) Expr {
	var layerTags, metricTags []string
	seen := map[string]struct{}{}
	for _, raw := range tags {
		tag, kind := ClassifyTag(raw)
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		switch kind {
		case TokenLayer:
			layerTags = append(layerTags, tag)
		case TokenMetric:
			metricTags = append(metricTags, tag)
		}
	}
	layerExpr := anyOf(layerTags)
	metricExpr := anyOf(metricTags)
	switch {
	case layerExpr == nil && metricExpr == nil:
		return trueExpr{}
	case layerExpr == nil:
		return metricExpr
	case metricExpr == nil:
		return layerExpr
	default:
		return andExpr{left: layerExpr, right: metricExpr}
	}
}

// ParseExpr parses an explicit expression such as
// "@layer2 and not (@faithfulness or @completeness)". Operators are
// and/or/not (also &&, ||, !) and "," as or. Tags may omit the '@'.
func ParseExpr(text string) (Expr, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return trueExpr{}, nil
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("tag expression %q: unexpected %q", text, p.tokens[p.pos])
	}
	return expr, nil
}

// LooksLikeExpr reports whether text uses expression operators rather than a plain list.
func LooksLikeExpr(text string) bool {
	tokens, err := tokenize(text)
	if err != nil {
		return false
	}
	for _, token := range tokens {
		switch token {
		case "and", "or", "not", "(", ")":
			return true
		}
	}
	return false
}

func tokenize(text string) ([]string, error) {
	var tokens []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			tokens = append(tokens, string(r))
			i++
		case r == ',':
			tokens = append(tokens, "or")
			i++
		case r == '!':
			tokens = append(tokens, "not")
			i++
		case r == '&' || r == '|':
			if i+1 >= len(runes) || runes[i+1] != r {
				return nil, fmt.Errorf("tag expression %q: lone %q", text, string(r))
			}
			if r == '&' {
				tokens = append(tokens, "and")
			} else {
				tokens = append(tokens, "or")
			}
			i += 2
		default:
			start := i
			for i < len(runes) && !unicode.IsSpace(runes[i]) && !strings.ContainsRune("()!,&|", runes[i]) {
				i++
			}
			word := string(runes[start:i])
			switch lower := strings.ToLower(word); lower {
			case "and", "or", "not":
				tokens = append(tokens, lower)
			default:
				tokens = append(tokens, "@"+Normalize(word))
			}
		}
	}
	return tokens, nil
}

type parser struct {
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "or" {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek() == "and" {
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	token := p.peek()
	switch {
	case token == "":
		return nil, fmt.Errorf("tag expression: unexpected end")
	case token == "not":
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notExpr{inner: inner}, nil
	case token == "(":
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("tag expression: missing ')'")
		}
		p.pos++
		return inner, nil
	case strings.HasPrefix(token, "@"):
		p.pos++
		return tagExpr{tag: strings.TrimPrefix(token, "@")}, nil
	default:
		return nil, fmt.Errorf("tag expression: unexpected %q", token)
	}
}
