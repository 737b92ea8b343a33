package resolver

import (
	"strconv"
	"strings"

	"github.com/viant/parsly"
)

type (
	// expression is a parsed ${...} span: one or more ||-separated terms;
	// the first term yielding a non-empty, non-null value wins.
	expression struct {
		terms []*term
	}

	// term is a quoted/number literal, a dotted path, or a function call,
	// optionally post-processed by a filter chain.
	term struct {
		literal  interface{}
		hasLit   bool
		path     []*segment
		call     *callExpr
		filters  []*filterCall
	}

	segment struct {
		name    string
		index   int
		isIndex bool
	}

	callExpr struct {
		name string
		args []*argument
	}

	filterCall struct {
		name string
		args []*argument
	}

	// argument is a literal value or a path evaluated against the context.
	argument struct {
		literal interface{}
		hasLit  bool
		path    []*segment
		raw     string
	}
)

// rootName returns the leading identifier of a path term or "".
func (t *term) rootName() string {
	if len(t.path) == 0 {
		return ""
	}
	return t.path[0].name
}

// parseExpression parses the inside of a ${...} span.
func parseExpression(expr string) (*expression, error) {
	cursor := parsly.NewCursor("", []byte(expr), 0)
	result := &expression{}
	for {
		aTerm, nextIsOr, err := parseTerm(cursor, expr)
		if err != nil {
			return nil, err
		}
		result.terms = append(result.terms, aTerm)
		if nextIsOr {
			continue
		}
		break
	}
	cursor.MatchOne(whitespaceToken)
	if cursor.Pos < cursor.InputSize {
		return nil, syntaxError(expr, "unexpected token at position %d", cursor.Pos)
	}
	return result, nil
}

// parseTerm parses one alternative; the second return value reports whether
// a || separator was consumed after it.
func parseTerm(cursor *parsly.Cursor, expr string) (*term, bool, error) {
	cursor.MatchOne(whitespaceToken)
	result := &term{}

	matched := cursor.MatchAny(quotedToken, numberToken, identifierToken)
	switch matched.Code {
	case quotedToken.Code:
		text := matched.Text(cursor)
		result.literal = text[1 : len(text)-1]
		result.hasLit = true
	case numberToken.Code:
		value, err := parseNumber(matched.Text(cursor))
		if err != nil {
			return nil, false, syntaxError(expr, "invalid number: %v", err)
		}
		result.literal = value
		result.hasLit = true
	case identifierToken.Code:
		name := matched.Text(cursor)
		if cursor.MatchOne(openParenToken).Code == openParenToken.Code {
			args, err := parseArguments(cursor, expr)
			if err != nil {
				return nil, false, err
			}
			result.call = &callExpr{name: name, args: args}
		} else {
			path, err := parsePathTail(cursor, expr, name)
			if err != nil {
				return nil, false, err
			}
			result.path = path
		}
	default:
		return nil, false, syntaxError(expr, "expected literal, path or function call")
	}

	// filter chain and/or fallback separator
	for {
		cursor.MatchOne(whitespaceToken)
		matched = cursor.MatchAny(orToken, pipeToken)
		switch matched.Code {
		case orToken.Code:
			return result, true, nil
		case pipeToken.Code:
			cursor.MatchOne(whitespaceToken)
			matched = cursor.MatchOne(identifierToken)
			if matched.Code != identifierToken.Code {
				return nil, false, syntaxError(expr, "expected filter name after |")
			}
			filter := &filterCall{name: matched.Text(cursor)}
			if cursor.MatchOne(openParenToken).Code == openParenToken.Code {
				args, err := parseArguments(cursor, expr)
				if err != nil {
					return nil, false, err
				}
				filter.args = args
			}
			result.filters = append(result.filters, filter)
		default:
			return result, false, nil
		}
	}
}

// parsePathTail parses (.ident|[idx])* after the leading identifier.
func parsePathTail(cursor *parsly.Cursor, expr, root string) ([]*segment, error) {
	path := []*segment{{name: root}}
	for {
		matched := cursor.MatchAny(dotToken, openBracketToken)
		switch matched.Code {
		case dotToken.Code:
			matched = cursor.MatchOne(identifierToken)
			if matched.Code != identifierToken.Code {
				return nil, syntaxError(expr, "expected identifier after .")
			}
			path = append(path, &segment{name: matched.Text(cursor)})
		case openBracketToken.Code:
			matched = cursor.MatchOne(numberToken)
			if matched.Code != numberToken.Code {
				return nil, syntaxError(expr, "expected index after [")
			}
			index, err := strconv.Atoi(matched.Text(cursor))
			if err != nil || index < 0 {
				return nil, syntaxError(expr, "invalid index %q", matched.Text(cursor))
			}
			if cursor.MatchOne(closeBracketToken).Code != closeBracketToken.Code {
				return nil, syntaxError(expr, "missing ] after index")
			}
			path = append(path, &segment{index: index, isIndex: true})
		default:
			return path, nil
		}
	}
}

// parseArguments parses a parenthesised, comma separated argument list; the
// opening parenthesis has already been consumed.
func parseArguments(cursor *parsly.Cursor, expr string) ([]*argument, error) {
	var args []*argument
	cursor.MatchOne(whitespaceToken)
	if cursor.MatchOne(closeParenToken).Code == closeParenToken.Code {
		return args, nil
	}
	for {
		cursor.MatchOne(whitespaceToken)
		matched := cursor.MatchAny(quotedToken, numberToken, identifierToken)
		switch matched.Code {
		case quotedToken.Code:
			text := matched.Text(cursor)
			args = append(args, &argument{literal: text[1 : len(text)-1], hasLit: true, raw: text[1 : len(text)-1]})
		case numberToken.Code:
			value, err := parseNumber(matched.Text(cursor))
			if err != nil {
				return nil, syntaxError(expr, "invalid number: %v", err)
			}
			args = append(args, &argument{literal: value, hasLit: true, raw: matched.Text(cursor)})
		case identifierToken.Code:
			name := matched.Text(cursor)
			path, err := parsePathTail(cursor, expr, name)
			if err != nil {
				return nil, err
			}
			args = append(args, &argument{path: path, raw: pathText(path)})
		default:
			return nil, syntaxError(expr, "expected argument")
		}
		cursor.MatchOne(whitespaceToken)
		matched = cursor.MatchAny(commaToken, closeParenToken)
		switch matched.Code {
		case commaToken.Code:
			continue
		case closeParenToken.Code:
			return args, nil
		default:
			return nil, syntaxError(expr, "expected , or )")
		}
	}
}

func parseNumber(text string) (interface{}, error) {
	if strings.Contains(text, ".") {
		return strconv.ParseFloat(text, 64)
	}
	value, err := strconv.Atoi(text)
	return value, err
}

func pathText(path []*segment) string {
	var b strings.Builder
	for i, seg := range path {
		if seg.isIndex {
			b.WriteString("[")
			b.WriteString(strconv.Itoa(seg.index))
			b.WriteString("]")
			continue
		}
		if i > 0 {
			b.WriteString(".")
		}
		b.WriteString(seg.name)
	}
	return b.String()
}
