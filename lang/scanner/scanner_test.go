package scanner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenlang/chenlang/lang/scanner"
	"github.com/chenlang/chenlang/lang/token"
)

func TestScanAll(t *testing.T) {
	toks, err := scanner.ScanAll([]byte("let x = 1 + 2.5 # comment\nprint(\"hi\")\n"))
	require.NoError(t, err)

	var kinds []token.Token
	for _, tv := range toks {
		kinds = append(kinds, tv.Token)
	}
	assert.Equal(t, []token.Token{
		token.LET, token.IDENT, token.ASSIGN, token.INT, token.PLUS, token.FLOAT,
		token.IDENT, token.LPAREN, token.STRING, token.RPAREN, token.EOF,
	}, kinds)
}

func TestScanHashBraceBeforeComment(t *testing.T) {
	toks, err := scanner.ScanAll([]byte("#{x: 1} # trailing"))
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	assert.Equal(t, token.HASHLBRACE, toks[0].Token)
}

func TestScanNumberDotIdent(t *testing.T) {
	toks, err := scanner.ScanAll([]byte("1.foo"))
	require.NoError(t, err)
	var kinds []token.Token
	for _, tv := range toks {
		kinds = append(kinds, tv.Token)
	}
	assert.Equal(t, []token.Token{token.INT, token.DOT, token.IDENT, token.EOF}, kinds)
}

func TestScanUnterminatedString(t *testing.T) {
	_, err := scanner.ScanAll([]byte(`"abc`))
	require.Error(t, err)
	var terr *scanner.TokenError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 1, terr.Line)
}

func TestScanIllegalCharacter(t *testing.T) {
	_, err := scanner.ScanAll([]byte("let x = @"))
	require.Error(t, err)
}

func TestScanLineTracking(t *testing.T) {
	toks, err := scanner.ScanAll([]byte("let x = 1\nlet y = 2\n"))
	require.NoError(t, err)
	var lines []int
	for _, tv := range toks {
		if tv.Token == token.LET {
			lines = append(lines, tv.Line)
		}
	}
	assert.Equal(t, []int{1, 2}, lines)
}
