package lexer

import (
	"bufio"
	"bytes"
	"io"

	"github.com/npillmayer/schuko/tracing"
)

var eof = rune(0)

// tracer traces with key 'pasc.lexer'.
func tracer() tracing.Trace {
	return tracing.Select("pasc.lexer")
}

// Scanner is a lexical scanner for the Pascal subset. Tokens are
// produced lazily, one at a time, with Scan.
type Scanner struct {
	reader      *bufio.Reader
	position    Position
	eof         bool
	bufferIndex int
	bufferSize  int
	buffer      [1024]struct {
		ch       rune
		position Position
	}
}

// NewScanner returns a new instance of Scanner reading from reader.
func NewScanner(reader io.Reader) *Scanner {
	return &Scanner{
		reader: bufio.NewReader(reader),
	}
}

// read reads the next rune from the buffered reader.
// Returns rune(0) if an error occurs (or io.EOF is returned).
func (s *Scanner) read() (rune, Position) {
	// If we have unread characters then read them off the buffer first.
	if s.bufferSize > 0 {
		s.bufferSize--
		return s.curr()
	}

	// Read next rune from underlying reader.
	// Any error (including io.EOF) should return as EOF.
	ch, _, err := s.reader.ReadRune()
	if err != nil {
		ch = eof
	} else if ch == '\r' {
		if ch, _, err := s.reader.ReadRune(); err != nil {
			// nop
		} else if ch != '\n' {
			_ = s.reader.UnreadRune()
		}
		ch = '\n'
	}

	// Save character and position to the buffer.
	s.bufferIndex = (s.bufferIndex + 1) % len(s.buffer)
	buffer := &s.buffer[s.bufferIndex]
	buffer.ch, buffer.position = ch, s.position

	// Update position.
	// Only count EOF once.
	if ch == '\n' {
		s.position.Line++
		s.position.Column = 0
	} else if !s.eof {
		s.position.Column++
	}

	// Mark the reader as EOF.
	// This is used so we don't double count EOF characters.
	if ch == eof {
		s.eof = true
	}

	return s.curr()
}

// curr returns the last read character and position.
func (s *Scanner) curr() (ch rune, pos Position) {
	bufferIndex := (s.bufferIndex - s.bufferSize + len(s.buffer)) % len(s.buffer)
	buffer := &s.buffer[bufferIndex]
	return buffer.ch, buffer.position
}

// unread pushes the previously read rune back onto the buffer.
func (s *Scanner) unread() {
	s.bufferSize++
}

// Scan returns the next token. At the end of the input it returns an
// EOF token; an unmatchable character sequence yields an ILLEGAL
// token carrying the offending lexeme.
func (s *Scanner) Scan() Token {
	ch, pos := s.read()

	// Skip comments and whitespace. Comments are either '{ ... }' or
	// '(* ... *)'; an unterminated comment is a lexical error.
	for {
		if ch == '{' {
			if !s.skipUntilRune('}') {
				return Token{TokenType: ILLEGAL, Lexeme: "{", Position: pos}
			}
		} else if ch == '(' {
			ch2, _ := s.read()
			if ch2 == '*' {
				if !s.skipUntilEndComment() {
					return Token{TokenType: ILLEGAL, Lexeme: "(*", Position: pos}
				}
			} else {
				s.unread()
				break
			}
		} else if isWhitespace(ch) {
			s.scanWhitespace()
		} else {
			break
		}

		ch, pos = s.read()
	}

	// If we see a letter then consume as an identifier or reserved word.
	if isLetter(ch) {
		s.unread()
		return s.scanIdentifier()
	} else if isDigit(ch) {
		s.unread()
		return s.scanNumber()
	}

	// Otherwise read the individual character.
	switch ch {
	case eof:
		return Token{TokenType: EOF, Lexeme: "EOF", Position: pos}

	case '\'':
		s.unread()
		return s.scanString()

	case ':':
		ch2, _ := s.read()
		if ch2 == '=' {
			return Token{TokenType: ASSIGN, Lexeme: ":=", Position: pos}
		}

		s.unread()
		return Token{TokenType: COLON, Lexeme: string(ch), Position: pos}

	case '<':
		ch2, _ := s.read()
		if ch2 == '>' {
			return Token{TokenType: RELOP, Lexeme: "<>", Position: pos}
		} else if ch2 == '=' {
			return Token{TokenType: RELOP, Lexeme: "<=", Position: pos}
		}

		s.unread()
		return Token{TokenType: RELOP, Lexeme: string(ch), Position: pos}

	case '>':
		ch2, _ := s.read()
		if ch2 == '=' {
			return Token{TokenType: RELOP, Lexeme: ">=", Position: pos}
		}

		s.unread()
		return Token{TokenType: RELOP, Lexeme: string(ch), Position: pos}

	case '=':
		return Token{TokenType: RELOP, Lexeme: string(ch), Position: pos}

	case '+', '-':
		return Token{TokenType: ADDOP, Lexeme: string(ch), Position: pos}

	case '*', '/':
		return Token{TokenType: MULOP, Lexeme: string(ch), Position: pos}

	case ';':
		return Token{TokenType: SEMICOLON, Lexeme: string(ch), Position: pos}

	case '(':
		return Token{TokenType: LPAREN, Lexeme: string(ch), Position: pos}

	case ')':
		return Token{TokenType: RPAREN, Lexeme: string(ch), Position: pos}

	case ',':
		return Token{TokenType: COMMA, Lexeme: string(ch), Position: pos}

	case '.':
		return Token{TokenType: DOT, Lexeme: string(ch), Position: pos}
	}

	tracer().Debugf("no token pattern matches %q at %d:%d", ch, pos.Line, pos.Column)
	return Token{TokenType: ILLEGAL, Lexeme: string(ch), Position: pos}
}

// scanWhitespace consumes the current rune and all contiguous whitespace.
func (s *Scanner) scanWhitespace() {
	for {
		if ch, _ := s.read(); ch == eof {
			break
		} else if !isWhitespace(ch) {
			s.unread()
			break
		}
	}
}

// scanIdentifier consumes the current rune and all contiguous
// identifier runes. A maximal identifier run that is in the
// reserved-word set is classified as the keyword.
func (s *Scanner) scanIdentifier() Token {
	ch, pos := s.read()

	var buf bytes.Buffer
	buf.WriteRune(ch)

	for {
		if ch, _ = s.read(); ch == eof {
			break
		} else if !isLetter(ch) && !isDigit(ch) && ch != '_' {
			s.unread()
			break
		} else {
			_, _ = buf.WriteRune(ch)
		}
	}

	if tok, ok := keywords[buf.String()]; ok {
		return Token{TokenType: tok, Lexeme: buf.String(), Position: pos}
	}

	return Token{TokenType: ID, Lexeme: buf.String(), Position: pos}
}

// scanNumber consumes an integer or real literal. A real literal is
// digits '.' digits with an optional exponent; a '.' not followed by
// a digit is left for the next scan (it terminates a program).
func (s *Scanner) scanNumber() Token {
	var buf bytes.Buffer
	ch, pos := s.read()

	for isDigit(ch) {
		_, _ = buf.WriteRune(ch)
		ch, _ = s.read()
	}

	tokType := INTNUM

	if ch == '.' {
		ch2, _ := s.read()
		if isDigit(ch2) {
			tokType = REALNUM
			buf.WriteRune('.')
			for isDigit(ch2) {
				_, _ = buf.WriteRune(ch2)
				ch2, _ = s.read()
			}
			ch = ch2
		} else {
			// The dot belongs to the next token.
			s.unread()
			s.unread()
			return Token{TokenType: INTNUM, Lexeme: buf.String(), Position: pos}
		}
	}

	if ch == 'e' || ch == 'E' {
		// scanExponent leaves the stream positioned after the matched
		// exponent, or fully rewound (including the 'e') on a non-match.
		if exp := s.scanExponent(ch); exp != "" {
			tokType = REALNUM
			buf.WriteString(exp)
		}
		return Token{TokenType: tokType, Lexeme: buf.String(), Position: pos}
	}

	s.unread()
	return Token{TokenType: tokType, Lexeme: buf.String(), Position: pos}
}

// scanExponent consumes 'e' ['+'|'-'] digits, returning the matched
// text, or "" when the runes after e do not form an exponent (they
// are pushed back).
func (s *Scanner) scanExponent(e rune) string {
	var buf bytes.Buffer
	buf.WriteRune(e)

	ch, _ := s.read()
	if ch == '+' || ch == '-' {
		buf.WriteRune(ch)
		ch, _ = s.read()
	}

	if !isDigit(ch) {
		for range buf.String() {
			s.unread()
		}
		s.unread()
		return ""
	}

	for isDigit(ch) {
		buf.WriteRune(ch)
		ch, _ = s.read()
	}
	s.unread()

	return buf.String()
}

// scanString consumes a string literal quoted with single quotes; a
// doubled quote inside the literal denotes one quote character. A
// newline or EOF before the closing quote is a lexical error.
func (s *Scanner) scanString() Token {
	_, pos := s.read() // opening quote

	var buf bytes.Buffer
	for {
		ch, _ := s.read()
		if ch == eof || ch == '\n' {
			return Token{TokenType: ILLEGAL, Lexeme: "'" + buf.String(), Position: pos}
		}
		if ch == '\'' {
			ch2, _ := s.read()
			if ch2 == '\'' {
				buf.WriteRune('\'')
				continue
			}
			s.unread()
			break
		}
		buf.WriteRune(ch)
	}

	return Token{TokenType: STRING, Lexeme: buf.String(), Position: pos}
}

// skipUntilRune skips characters up to and including the given rune.
// Reports false when EOF is reached first.
func (s *Scanner) skipUntilRune(end rune) bool {
	for {
		ch, _ := s.read()
		if ch == end {
			return true
		}
		if ch == eof {
			return false
		}
	}
}

// skipUntilEndComment skips characters until it reaches a '*)' symbol.
func (s *Scanner) skipUntilEndComment() bool {
	for {
		if ch, _ := s.read(); ch == '*' {
			// We might be at the end.
		star:
			ch2, _ := s.read()
			if ch2 == ')' {
				return true
			} else if ch2 == '*' {
				// We are back in the state machine since we see a star.
				goto star
			} else if ch2 == eof {
				return false
			}
		} else if ch == eof {
			return false
		}
	}
}

func isWhitespace(ch rune) bool { return ch == ' ' || ch == '\t' || ch == '\n' }

func isLetter(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }
