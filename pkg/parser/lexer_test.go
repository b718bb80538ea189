package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querylink/fetchsql/pkg/token"
)

func TestLexer_SimpleStatement(t *testing.T) {
	input := "SELECT name FROM account"

	expected := []struct {
		typ token.Type
		lit string
	}{
		{token.SELECT, "SELECT"},
		{token.IDENT, "name"},
		{token.FROM, "FROM"},
		{token.IDENT, "account"},
		{token.EOF, ""},
	}

	tokens, err := Tokenize(input)
	require.NoError(t, err, "unexpected error")
	require.Len(t, tokens, len(expected), "wrong number of tokens")

	for i, exp := range expected {
		assert.Equal(t, exp.typ, tokens[i].Type, "token[%d] type", i)
		assert.Equal(t, exp.lit, tokens[i].Literal, "token[%d] literal", i)
	}
}

func TestLexer_Operators(t *testing.T) {
	input := "= <> != < > <= >= . , ( ) *"

	expected := []token.Type{
		token.EQ, token.NE, token.NE, token.LT, token.GT,
		token.LE, token.GE, token.DOT, token.COMMA,
		token.LPAREN, token.RPAREN, token.STAR, token.EOF,
	}

	tokens, err := Tokenize(input)
	require.NoError(t, err, "unexpected error")
	require.Len(t, tokens, len(expected), "wrong number of tokens")

	for i, typ := range expected {
		assert.Equal(t, typ, tokens[i].Type, "token[%d] type", i)
	}
}

func TestLexer_KeywordsAreCaseInsensitive(t *testing.T) {
	tokens, err := Tokenize("select Name FROM Account where X like 'a%'")
	require.NoError(t, err, "unexpected error")

	types := make([]token.Type, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	assert.Equal(t, []token.Type{
		token.SELECT, token.IDENT, token.FROM, token.IDENT,
		token.WHERE, token.IDENT, token.LIKE, token.STRING, token.EOF,
	}, types)

	// Identifier case is preserved even though keywords are not.
	assert.Equal(t, "Name", tokens[1].Literal)
	assert.Equal(t, "Account", tokens[3].Literal)
}

func TestLexer_StringLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain string", "'hello'", "hello"},
		{"empty string", "''", ""},
		{"escaped quote", "'it''s'", "it's"},
		{"only escaped quote", "''''", "'"},
		{"string with spaces", "'hello world'", "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			require.NoError(t, err, "unexpected error")
			require.Len(t, tokens, 2)
			assert.Equal(t, token.STRING, tokens[0].Type)
			assert.Equal(t, tt.expected, tokens[0].Literal)
		})
	}
}

func TestLexer_Numbers(t *testing.T) {
	tokens, err := Tokenize("10 45.67 0")
	require.NoError(t, err, "unexpected error")
	require.Len(t, tokens, 4)

	assert.Equal(t, "10", tokens[0].Literal)
	assert.Equal(t, "45.67", tokens[1].Literal)
	assert.Equal(t, "0", tokens[2].Literal)
	for i := 0; i < 3; i++ {
		assert.Equal(t, token.NUMBER, tokens[i].Type, "token[%d] type", i)
	}
}

func TestLexer_Comments(t *testing.T) {
	input := `SELECT name -- trailing comment
FROM /* block
comment */ account`

	tokens, err := Tokenize(input)
	require.NoError(t, err, "unexpected error")

	types := make([]token.Type, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	assert.Equal(t, []token.Type{token.SELECT, token.IDENT, token.FROM, token.IDENT, token.EOF}, types)
}

func TestLexer_PositionTracking(t *testing.T) {
	input := "SELECT name\nFROM account"

	tokens, err := Tokenize(input)
	require.NoError(t, err, "unexpected error")
	require.Len(t, tokens, 5)

	// SELECT at 1:1, name at 1:8, FROM at 2:1, account at 2:6.
	assert.Equal(t, 1, tokens[0].Pos.Line)
	assert.Equal(t, 1, tokens[0].Pos.Column)
	assert.Equal(t, 1, tokens[1].Pos.Line)
	assert.Equal(t, 8, tokens[1].Pos.Column)
	assert.Equal(t, 2, tokens[2].Pos.Line)
	assert.Equal(t, 1, tokens[2].Pos.Column)
	assert.Equal(t, 2, tokens[3].Pos.Line)
	assert.Equal(t, 6, tokens[3].Pos.Column)
}

func TestLexer_UnterminatedString(t *testing.T) {
	_, err := Tokenize("SELECT name FROM account WHERE name = 'unclosed")
	require.Error(t, err, "expected lex error")

	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, errUnterminatedString, lexErr.Message)
	assert.Equal(t, 1, lexErr.Pos.Line)
	assert.Equal(t, 39, lexErr.Pos.Column)
}

func TestLexer_UnrecognizedCharacter(t *testing.T) {
	_, err := Tokenize("SELECT name FROM account WHERE x # 1")
	require.Error(t, err, "expected lex error")

	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Contains(t, lexErr.Message, "unrecognized character")
}

func TestLexer_BareBangIsError(t *testing.T) {
	_, err := Tokenize("SELECT name FROM account WHERE x ! 1")
	require.Error(t, err, "bare ! must not lex")

	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
}
