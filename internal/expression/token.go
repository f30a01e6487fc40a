// Package expression implements the restricted expression language used
// by transition guards and bindings: variable paths with field and index
// dereference, literals, comparisons and boolean connectives, plus
// {{expr}} text templating.
package expression

// TokenType identifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal
	TokenIdent  // variable path: v, order.total, items[0].name
	TokenInt    // integer literal
	TokenFloat  // float literal
	TokenString // quoted string literal
	TokenBool   // true / false
	TokenEQ     // ==
	TokenNE     // !=
	TokenLT     // <
	TokenGT     // >
	TokenLE     // <=
	TokenGE     // >=
	TokenAND    // and / AND / &&
	TokenOR     // or / OR / ||
	TokenNOT    // not / NOT / !
	TokenLParen // (
	TokenRParen // )
)

// Token is one lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int
}
