package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExpressionType defines the type of boolean tag expression
type ExpressionType string

const (
	ExpressionTag ExpressionType = "tag"
	ExpressionAnd ExpressionType = "and"
	ExpressionOr  ExpressionType = "or"
	ExpressionXor ExpressionType = "xor"
	ExpressionNot ExpressionType = "not"
)

// BooleanExpression narrows a template candidate pool by template tags
type BooleanExpression struct {
	Type     ExpressionType
	Tag      string
	Children []*BooleanExpression
}

// SavedPool is a named template pool: a tag expression, an optional fuzzy
// text query and explicit template ids, all combined with AND
type SavedPool struct {
	Name        string             `json:"name"`
	Expression  *BooleanExpression `json:"expression,omitempty"`
	TextQuery   string             `json:"textQuery,omitempty"`
	TemplateIDs []string           `json:"templateIds,omitempty"`
	Description string             `json:"description,omitempty"`
	CreatedAt   string             `json:"createdAt"`
	UpdatedAt   string             `json:"updatedAt"`
}

// Evaluate evaluates the expression against a tag list. A nil expression matches everything.
func (be *BooleanExpression) Evaluate(tags []string) bool {
	if be == nil {
		return true
	}

	switch be.Type {
	case ExpressionTag:
		return containsTag(tags, be.Tag)
	case ExpressionAnd:
		for _, c := range be.Children {
			if !c.Evaluate(tags) {
				return false
			}
		}
		return true
	case ExpressionOr:
		for _, c := range be.Children {
			if c.Evaluate(tags) {
				return true
			}
		}
		return false
	case ExpressionXor:
		if len(be.Children) != 2 {
			return false
		}
		return be.Children[0].Evaluate(tags) != be.Children[1].Evaluate(tags)
	case ExpressionNot:
		if len(be.Children) != 1 {
			return false
		}
		return !be.Children[0].Evaluate(tags)
	default:
		return false
	}
}

// Matches evaluates the expression against a template's tags
func (be *BooleanExpression) Matches(doc *TemplateDocument) bool {
	return be.Evaluate(doc.Tags)
}

// String returns the expression in the syntax accepted by ParseBooleanExpression
func (be *BooleanExpression) String() string {
	if be == nil {
		return ""
	}
	join := func(op string) string {
		parts := make([]string, 0, len(be.Children))
		for _, c := range be.Children {
			s := c.String()
			if c.Type != ExpressionTag && c.Type != ExpressionNot {
				s = "(" + s + ")"
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "+op+" ")
	}

	switch be.Type {
	case ExpressionTag:
		return be.Tag
	case ExpressionAnd:
		return join("AND")
	case ExpressionOr:
		return join("OR")
	case ExpressionXor:
		return join("XOR")
	case ExpressionNot:
		if len(be.Children) == 1 {
			return "NOT " + be.Children[0].String()
		}
		return "NOT ?"
	default:
		return "?"
	}
}

func containsTag(tags []string, target string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, target) {
			return true
		}
	}
	return false
}

// NewTagExpression creates a new tag expression
func NewTagExpression(tag string) *BooleanExpression {
	return &BooleanExpression{Type: ExpressionTag, Tag: tag}
}

// NewAndExpression creates a new AND expression
func NewAndExpression(expressions ...*BooleanExpression) *BooleanExpression {
	return &BooleanExpression{Type: ExpressionAnd, Children: expressions}
}

// NewOrExpression creates a new OR expression
func NewOrExpression(expressions ...*BooleanExpression) *BooleanExpression {
	return &BooleanExpression{Type: ExpressionOr, Children: expressions}
}

// NewXorExpression creates a new XOR expression
func NewXorExpression(left, right *BooleanExpression) *BooleanExpression {
	return &BooleanExpression{Type: ExpressionXor, Children: []*BooleanExpression{left, right}}
}

// NewNotExpression creates a new NOT expression
func NewNotExpression(expr *BooleanExpression) *BooleanExpression {
	return &BooleanExpression{Type: ExpressionNot, Children: []*BooleanExpression{expr}}
}

// ParseBooleanExpression parses "a AND (b OR NOT c)". OR binds loosest,
// then XOR, then AND; NOT is a prefix operator.
func ParseBooleanExpression(input string) (*BooleanExpression, error) {
	p := &exprParser{tokens: lexExpression(input)}
	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("unexpected %q at position %d", p.tokens[p.pos], p.pos)
	}
	return expr, nil
}

func lexExpression(input string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range input {
		switch {
		case r == '(' || r == ')':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

type exprParser struct {
	tokens []string
	pos    int
}

func (p *exprParser) peekOp(op string) bool {
	return p.pos < len(p.tokens) && strings.EqualFold(p.tokens[p.pos], op)
}

func (p *exprParser) parseOr() (*BooleanExpression, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	children := []*BooleanExpression{left}
	for p.peekOp("OR") {
		p.pos++
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return left, nil
	}
	return NewOrExpression(children...), nil
}

func (p *exprParser) parseXor() (*BooleanExpression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekOp("XOR") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = NewXorExpression(left, right)
	}
	return left, nil
}

func (p *exprParser) parseAnd() (*BooleanExpression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	children := []*BooleanExpression{left}
	for p.peekOp("AND") {
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return left, nil
	}
	return NewAndExpression(children...), nil
}

func (p *exprParser) parseUnary() (*BooleanExpression, error) {
	if p.pos >= len(p.tokens) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	tok := p.tokens[p.pos]
	switch {
	case strings.EqualFold(tok, "NOT"):
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewNotExpression(inner), nil
	case tok == "(":
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos] != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	case tok == ")" || strings.EqualFold(tok, "AND") || strings.EqualFold(tok, "OR") || strings.EqualFold(tok, "XOR"):
		return nil, fmt.Errorf("unexpected %q", tok)
	default:
		p.pos++
		return NewTagExpression(tok), nil
	}
}

type expressionJSON struct {
	Type  ExpressionType  `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes tags as {"type":"tag","value":"x"} and operators with a child array
func (be *BooleanExpression) MarshalJSON() ([]byte, error) {
	var value interface{} = be.Children
	if be.Type == ExpressionTag {
		value = be.Tag
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(expressionJSON{Type: be.Type, Value: raw})
}

// UnmarshalJSON implements the inverse of MarshalJSON
func (be *BooleanExpression) UnmarshalJSON(data []byte) error {
	var tmp expressionJSON
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	be.Type = tmp.Type
	if tmp.Type == ExpressionTag {
		return json.Unmarshal(tmp.Value, &be.Tag)
	}
	return json.Unmarshal(tmp.Value, &be.Children)
}
