package lexer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// Lexer walks a document or query rune by rune and emits normalized search
// terms. Indexing and query analysis must use the same lexer, otherwise
// term frequencies and query tokens would never line up.
type Lexer struct {
	content []rune
}

func New(text string) *Lexer {
	return &Lexer{content: []rune(text)}
}

// Next returns the next token and true, or "" and false once the input is
// exhausted. Alphabetic runs are lowercased and stemmed, numeric runs are
// returned as-is and any other non-whitespace rune becomes its own token.
func (l *Lexer) Next() (string, bool) {
	l.trimLeft()

	if len(l.content) == 0 {
		return "", false
	}

	if unicode.IsLetter(l.content[0]) {
		term := strings.ToLower(string(l.chopWhile(unicode.IsLetter)))
		return stem(term), true
	}

	if unicode.IsDigit(l.content[0]) {
		return string(l.chopWhile(unicode.IsDigit)), true
	}

	return string(l.chop(1)), true
}

// Tokens runs the lexer over text and collects every token.
func Tokens(text string) []string {
	var tokens []string
	l := New(text)
	for {
		token, ok := l.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, token)
	}
}

func (l *Lexer) chop(n int) []rune {
	token := l.content[:n]
	l.content = l.content[n:]
	return token
}

func (l *Lexer) chopWhile(predicate func(rune) bool) []rune {
	n := 0
	for n < len(l.content) && predicate(l.content[n]) {
		n++
	}
	return l.chop(n)
}

func (l *Lexer) trimLeft() {
	for len(l.content) > 0 && unicode.IsSpace(l.content[0]) {
		l.content = l.content[1:]
	}
}

func stem(term string) string {
	stemmed, err := snowball.Stem(term, "english", false)
	if err != nil {
		// Stemming failure is not fatal, the raw lowercase term still works
		// as a search term.
		return term
	}
	return stemmed
}
