package implode

import "fmt"

// TokenKind tells which path of the decoder produced a token.
type TokenKind uint8

const (
	TokenLiteral TokenKind = iota
	TokenCopy
	TokenEnd
)

func (k TokenKind) String() string {
	switch k {
	case TokenLiteral:
		return "literal"
	case TokenCopy:
		return "copy"
	case TokenEnd:
		return "end"
	default:
		return fmt.Sprintf("TokenKind(%d)", uint8(k))
	}
}

// Token is one decoded step of a stream.
type Token struct {
	Kind     TokenKind
	Bit      int64 // Input bit offset of the control bit.
	Output   int   // Output position the token starts at.
	Literal  byte  // TokenLiteral only.
	Length   int   // TokenCopy only.
	Distance int   // TokenCopy only.
}

func (t Token) String() string {
	switch t.Kind {
	case TokenLiteral:
		return fmt.Sprintf("%d@%d literal 0x%02x", t.Output, t.Bit, t.Literal)
	case TokenCopy:
		return fmt.Sprintf("%d@%d copy length=%d distance=%d", t.Output, t.Bit, t.Length, t.Distance)
	default:
		return fmt.Sprintf("%d@%d %s", t.Output, t.Bit, t.Kind)
	}
}
