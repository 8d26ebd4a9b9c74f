package emit

import "strings"

// EscapeString returns a shell word that evaluates to exactly s.
//
// The empty string becomes ''. A string made only of safe characters
// [A-Za-z0-9_./-:=+,@%^] that starts with [A-Za-z0-9_./] is returned as is.
// Anything else is single-quoted, with each embedded ' written as '"'"'.
func EscapeString(s string) string {
	if s == "" {
		return "''"
	}
	if isSafeUnquoted(s) {
		return s
	}
	return quote(s)
}

// EscapeIdentifier maps s to a valid shell identifier [A-Za-z_][A-Za-z0-9_]*.
// Each invalid character becomes _, and the empty string becomes _.
func EscapeIdentifier(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(s))
	first := true
	for _, r := range s {
		switch {
		case r < 0x80 && isIdentStart(byte(r)):
			b.WriteRune(r)
		case !first && r < 0x80 && isDigit(byte(r)):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		first = false
	}
	return b.String()
}

// EscapeCommandName returns s unchanged when it is a safe command name: only
// [A-Za-z0-9_./:+-], not starting with -, and not a reserved word. Anything
// else goes through EscapeString and is quoted even when EscapeString would
// leave it bare, so a name such as a=b is never read as an assignment.
func EscapeCommandName(s string) string {
	if isSafeCommandName(s) && !reservedWords[s] {
		return s
	}
	if esc := EscapeString(s); esc != s {
		return esc
	}
	return quote(s)
}

// escapeArg is EscapeString, except that an option word such as -p or
// --mode=0755 stays bare. A leading - is only special in command position.
func escapeArg(s string) string {
	if len(s) > 1 && s[0] == '-' {
		bare := true
		for i := 1; i < len(s); i++ {
			if !isSafeByte(s[i]) {
				bare = false
				break
			}
		}
		if bare {
			return s
		}
	}
	return EscapeString(s)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func isSafeUnquoted(s string) bool {
	if !isSafeFirst(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isSafeByte(s[i]) {
			return false
		}
	}
	return true
}

func isSafeFirst(c byte) bool {
	return isAlnum(c) || c == '_' || c == '.' || c == '/'
}

func isSafeByte(c byte) bool {
	if isSafeFirst(c) {
		return true
	}
	switch c {
	case '-', ':', '=', '+', ',', '@', '%', '^':
		return true
	}
	return false
}

func isSafeCommandName(s string) bool {
	if s == "" || s[0] == '-' {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isAlnum(c) && !strings.ContainsRune("_./:+-", rune(c)) {
			return false
		}
	}
	return true
}

// reservedWords are recognized by the shell in command position.
var reservedWords = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"do": true, "done": true, "case": true, "esac": true, "while": true,
	"until": true, "for": true, "in": true, "function": true, "select": true,
	"time": true,
}

// IsIdentifier reports whether s matches [A-Za-z_][A-Za-z0-9_]*.
func IsIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentStart(s[i]) && !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// isParameter reports whether ${name} is a valid expansion: an identifier,
// a positional parameter or a special parameter.
func isParameter(name string) bool {
	if IsIdentifier(name) {
		return true
	}
	if name == "" {
		return false
	}
	if len(name) == 1 && strings.ContainsRune("@*#?-$!0", rune(name[0])) {
		return true
	}
	for i := 0; i < len(name); i++ {
		if !isDigit(name[i]) {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func isIdentStart(c byte) bool {
	return isAlpha(c) || c == '_'
}

// escapePattern renders a glob or case pattern. The metacharacters * ? [ ]
// stay unquoted, along with a ! or ^ that opens a bracket expression. Every
// other run of characters is escaped.
func escapePattern(p string) string {
	if p == "" {
		return "''"
	}
	var b strings.Builder
	run := strings.Builder{}
	flush := func() {
		if run.Len() > 0 {
			b.WriteString(EscapeString(run.String()))
			run.Reset()
		}
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch c {
		case '*', '?', ']':
			flush()
			b.WriteByte(c)
		case '[':
			flush()
			b.WriteByte(c)
			if i+1 < len(p) && (p[i+1] == '!' || p[i+1] == '^') {
				i++
				b.WriteByte(p[i])
			}
		default:
			run.WriteByte(c)
		}
	}
	flush()
	return b.String()
}
