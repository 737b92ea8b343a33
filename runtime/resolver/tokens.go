package resolver

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	identifierCode
	numberCode
	quotedCode
	dotCode
	openBracketCode
	closeBracketCode
	openParenCode
	closeParenCode
	commaCode
	pipeCode
	orCode
)

// Token definitions
var (
	whitespaceToken   = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken   = parsly.NewToken(identifierCode, "Identifier", newIdentifierMatcher())
	numberToken       = parsly.NewToken(numberCode, "Number", newNumberMatcher())
	quotedToken       = parsly.NewToken(quotedCode, "Quoted", newQuotedMatcher())
	dotToken          = parsly.NewToken(dotCode, ".", matcher.NewByte('.'))
	openBracketToken  = parsly.NewToken(openBracketCode, "[", matcher.NewByte('['))
	closeBracketToken = parsly.NewToken(closeBracketCode, "]", matcher.NewByte(']'))
	openParenToken    = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken   = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	commaToken        = parsly.NewToken(commaCode, ",", matcher.NewByte(','))
	pipeToken         = parsly.NewToken(pipeCode, "|", matcher.NewByte('|'))
	orToken           = parsly.NewToken(orCode, "||", newOrMatcher())
)

func newIdentifierMatcher() parsly.Matcher {
	return &identifierMatcher{}
}

func newNumberMatcher() parsly.Matcher {
	return &numberMatcher{}
}

func newQuotedMatcher() parsly.Matcher {
	return &quotedMatcher{}
}

func newOrMatcher() parsly.Matcher {
	return &orMatcher{}
}

// identifierMatcher matches valid identifier names
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}

	// First character must be a letter or underscore
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}

	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' {
			matched++
			continue
		}
		break
	}
	return matched
}

// numberMatcher matches integer and floating point literals
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}

	matched := 0
	i := pos
	if input[i] == '-' {
		matched++
		i++
	}
	digits := 0
	for ; i < size && isDigit(input[i]); i++ {
		matched++
		digits++
	}
	if digits == 0 {
		return 0
	}
	if i < size && input[i] == '.' {
		fraction := 0
		for j := i + 1; j < size && isDigit(input[j]); j++ {
			fraction++
		}
		if fraction > 0 {
			matched += 1 + fraction
		}
	}
	return matched
}

// quotedMatcher matches single or double quoted literals including quotes
type quotedMatcher struct{}

func (m *quotedMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	quote := input[pos]
	if quote != '\'' && quote != '"' {
		return 0
	}
	for i := pos + 1; i < size; i++ {
		if input[i] == quote {
			return i - pos + 1
		}
	}
	return 0
}

// orMatcher matches the two byte fallback separator
type orMatcher struct{}

func (m *orMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos+1 >= cursor.InputSize {
		return 0
	}
	if input[pos] == '|' && input[pos+1] == '|' {
		return 2
	}
	return 0
}

// Helper functions
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
