package repair

import (
	"regexp"
	"strconv"
	"strings"

	"fjacquet/card-expenses/internal/textutils"
)

// Strategy is one step of the repair chain. Apply returns a decoded JSON
// value, or false when the strategy cannot make sense of raw.
type Strategy interface {
	Name() string
	Apply(raw string) (any, bool)
}

// DirectParse decodes the payload after removing fences and surrounding prose.
type DirectParse struct{}

func (DirectParse) Name() string { return "direct" }

func (DirectParse) Apply(raw string) (any, bool) {
	v, err := decode(sliceJSON(stripFences(raw)))
	return v, err == nil
}

// BraceRepair closes containers left open by a truncated response. It first
// tries closing everything at the cut, then falls back to the last fully
// closed element.
type BraceRepair struct{}

func (BraceRepair) Name() string { return "brace_repair" }

func (BraceRepair) Apply(raw string) (any, bool) {
	return decodeBalanced(stripFences(raw))
}

func decodeBalanced(s string) (any, bool) {
	for _, candidate := range balanceCandidates(s) {
		if v, err := decode(candidate); err == nil {
			return v, true
		}
	}
	return nil, false
}

// balanceCandidates returns repaired variants of s, most faithful first.
func balanceCandidates(s string) []string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil
	}
	s = s[start:]

	var (
		stack     []byte
		safeStack []byte
		safeEnd   = -1
		inString  bool
		escaped   bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				return []string{s[:i]}
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return []string{s[:i+1]}
			}
			safeEnd = i + 1
			safeStack = append(safeStack[:0], stack...)
		}
	}

	var out []string
	full := s
	if inString {
		if escaped {
			full = full[:len(full)-1]
		}
		full += `"`
	}
	out = append(out, trimDangling(full)+closers(stack))
	if safeEnd > 0 {
		out = append(out, trimDangling(s[:safeEnd])+closers(safeStack))
	}
	return out
}

func trimDangling(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	for strings.HasSuffix(s, ",") {
		s = strings.TrimRight(strings.TrimSuffix(s, ","), " \t\r\n")
	}
	return s
}

func closers(stack []byte) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// CharacterRepair fixes character-level damage and then retries the direct
// and brace strategies on the cleaned text. Handled: smart and single quotes,
// unquoted keys, raw control characters or stray quotes inside strings, bad
// escapes, trailing or missing commas, unquoted thousands separators and
// non-JSON literals.
type CharacterRepair struct{}

func (CharacterRepair) Name() string { return "character_repair" }

func (CharacterRepair) Apply(raw string) (any, bool) {
	fixed := fixCharacters(stripFences(raw))
	if v, err := decode(sliceJSON(fixed)); err == nil {
		return v, true
	}
	return decodeBalanced(fixed)
}

var (
	smartQuotes     = strings.NewReplacer("“", `"`, "”", `"`, "„", `"`, "‘", "'", "’", "'")
	trailingComma   = regexp.MustCompile(`,\s*([}\]])`)
	missingComma    = regexp.MustCompile(`([}\]"])\s*\n\s*([{"])`)
	objectRun       = regexp.MustCompile(`\}\s*\{`)
	thousandsNumber = regexp.MustCompile(`(:\s*)(-?\d{1,3}(?:,\d{3})+(?:\.\d+)?)(\s*[,}\]])`)
	lineComment     = regexp.MustCompile(`(?m)^\s*//.*$`)
	badLiteral      = regexp.MustCompile(`(:\s*)(None|NaN|undefined|nan)(\s*[,}\]])`)
	pyBool          = regexp.MustCompile(`(:\s*)(True|False)(\s*[,}\]])`)
)

func fixCharacters(s string) string {
	s = smartQuotes.Replace(s)
	s = lineComment.ReplaceAllString(s, "")
	s = normalizeQuotes(s)
	s = escapeInsideStrings(s)
	s = outsideStrings(s, func(seg string) string {
		seg = thousandsNumber.ReplaceAllString(seg, `$1"$2"$3`)
		seg = badLiteral.ReplaceAllString(seg, "${1}null$3")
		return pyBool.ReplaceAllStringFunc(seg, strings.ToLower)
	})
	s = missingComma.ReplaceAllString(s, "$1,\n$2")
	s = objectRun.ReplaceAllString(s, "},{")
	s = trailingComma.ReplaceAllString(s, "$1")
	return s
}

// normalizeQuotes rewrites single-quoted strings and bare object keys into
// double-quoted JSON. It tracks whether it is inside a string, so commas and
// colons in a merchant name are never taken for structure. A single quote
// opens a string only after one of {[,: and, like a double quote, closes it
// only when a structural character follows.
func normalizeQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	var quote byte // 0 outside strings
	var last byte  // last non-space byte written outside strings
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\' && i+1 < len(s):
				if quote == '\'' && s[i+1] == '\'' {
					b.WriteByte('\'')
				} else {
					b.WriteByte(c)
					b.WriteByte(s[i+1])
				}
				i++
			case c == quote && closesString(s[i+1:]):
				b.WriteByte('"')
				quote, last = 0, '"'
			case c == '"' && quote == '\'':
				b.WriteString(`\"`)
			default:
				b.WriteByte(c)
			}
			continue
		}

		switch {
		case c == '"', c == '\'' && strings.IndexByte("{[,:", last) >= 0:
			quote = c
			b.WriteByte('"')
		case (last == '{' || last == ',') && isKeyStart(c):
			j := i + 1
			for j < len(s) && isKeyPart(s[j]) {
				j++
			}
			word := s[i:j]
			if strings.HasPrefix(strings.TrimLeft(s[j:], " \t\r\n"), ":") {
				b.WriteString(`"` + word + `"`)
			} else {
				b.WriteString(word)
			}
			last = word[len(word)-1]
			i = j - 1
		default:
			b.WriteByte(c)
			if c != ' ' && c != '\t' && c != '\r' && c != '\n' {
				last = c
			}
		}
	}
	return b.String()
}

func isKeyStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKeyPart(c byte) bool {
	return isKeyStart(c) || (c >= '0' && c <= '9')
}

// outsideStrings applies fn to the text between double-quoted literals and
// copies the literals unchanged. s must already have its stray quotes
// escaped.
func outsideStrings(s string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	start := 0
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				b.WriteString(s[start : i+1])
				start, inString = i+1, false
			}
			continue
		}
		if c == '"' {
			b.WriteString(fn(s[start:i]))
			start, inString = i, true
		}
	}
	if inString {
		b.WriteString(s[start:])
	} else {
		b.WriteString(fn(s[start:]))
	}
	return b.String()
}

// escapeInsideStrings walks the text once, escaping raw control characters
// and invalid backslashes inside string literals. A quote that is not
// followed by a structural character is treated as part of the string.
func escapeInsideStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch c {
		case '\\':
			if i+1 < len(s) && strings.IndexByte(`"\/bfnrtu`, s[i+1]) >= 0 {
				b.WriteByte(c)
				b.WriteByte(s[i+1])
				i++
			} else {
				b.WriteString(`\\`)
			}
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			if closesString(s[i+1:]) {
				inString = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func closesString(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest == "" || strings.IndexByte(",:}]", rest[0]) >= 0
}

// RegexSalvage recovers individual records from text that no longer parses
// as a whole. Each flat {...} object is decoded on its own; the most recent
// "name" seen before it names its representative. Records missing a card or
// a date inherit the previous record's value. When no object survives, plain
// "date merchant amount" lines are read instead.
type RegexSalvage struct{}

func (RegexSalvage) Name() string { return "regex_salvage" }

var (
	flatObject = regexp.MustCompile(`\{[^{}]*\}`)
	nameField  = regexp.MustCompile(`"(?:name|representative|commercial|comercial|nombre|titular)"\s*:\s*"([^"]*)"`)
	keyedGroup = regexp.MustCompile(`"([^"]+)"\s*:\s*\{\s*"(?:total|transac|records)`)
	keyValue   = regexp.MustCompile(`"([^"]+)"\s*:\s*("(?:[^"\\]|\\.)*"|-?\d[\d.,]*|null|true|false)`)
	plainLine  = regexp.MustCompile(`^\s*(\d{1,2}[/\-]\d{1,2}(?:[/\-]\d{2,4})?)\s+(.+?)\s+(\$?\(?-?[\d,]*\d\.\d{2}\)?-?)\s*$`)
)

var cardHints = []string{"card", "tarjeta", "ending", "terminada", "xxxx", "cuenta", "account"}

type namedPos struct {
	pos  int
	name string
}

func (RegexSalvage) Apply(raw string) (any, bool) {
	text := smartQuotes.Replace(raw)
	// Object and name patterns expect double-quoted keys; plain lines are
	// read from the text as written.
	quoted := normalizeQuotes(text)

	var names []namedPos
	for _, m := range nameField.FindAllStringSubmatchIndex(quoted, -1) {
		names = append(names, namedPos{pos: m[0], name: quoted[m[2]:m[3]]})
	}
	for _, m := range keyedGroup.FindAllStringSubmatchIndex(quoted, -1) {
		names = append(names, namedPos{pos: m[0], name: quoted[m[2]:m[3]]})
	}

	var out []any
	var lastAccount, lastDate string
	for _, loc := range flatObject.FindAllStringIndex(quoted, -1) {
		obj := salvageObject(quoted[loc[0]:loc[1]])
		if obj == nil {
			continue
		}
		if _, ok := obj.lookup(amountKeys); !ok {
			continue
		}
		rec := recordFromObject(obj)
		if rec.Representative == "" {
			if name := nameBefore(names, loc[0]); name != "" {
				obj.set("name", name)
			}
		}
		if rec.Account == "" && lastAccount != "" {
			obj.set("account", lastAccount)
		}
		if rec.PostingDate == "" && rec.TransactionDate == "" && lastDate != "" {
			obj.set("transaction_date", lastDate)
		}
		if rec.Account != "" {
			lastAccount = rec.Account
		}
		if d := firstNonEmpty(rec.TransactionDate, rec.PostingDate); d != "" {
			lastDate = d
		}
		out = append(out, obj)
	}
	if len(out) > 0 {
		return out, true
	}

	for _, line := range strings.Split(text, "\n") {
		if last4 := textutils.ExtractLast4(line); last4 != "" && !plainLine.MatchString(line) &&
			textutils.ContainsAny(line, cardHints) {
			lastAccount = last4
			continue
		}
		m := plainLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		obj := newObject()
		obj.set("transaction_date", m[1])
		obj.set("supplier", strings.TrimSpace(m[2]))
		obj.set("amount", m[3])
		if lastAccount != "" {
			obj.set("account", lastAccount)
		}
		out = append(out, obj)
	}
	return out, len(out) > 0
}

func salvageObject(fragment string) *object {
	if v, err := decode(fixCharacters(fragment)); err == nil {
		if o, ok := v.(*object); ok {
			return o
		}
	}
	matches := keyValue.FindAllStringSubmatch(fragment, -1)
	if len(matches) == 0 {
		return nil
	}
	o := newObject()
	for _, m := range matches {
		val := m[2]
		if strings.HasPrefix(val, `"`) {
			if unq, err := strconv.Unquote(val); err == nil {
				val = unq
			} else {
				val = strings.Trim(val, `"`)
			}
		} else if val == "null" {
			val = ""
		}
		o.set(m[1], val)
	}
	return o
}

func nameBefore(names []namedPos, pos int) string {
	best := namedPos{pos: -1}
	for _, n := range names {
		if n.pos < pos && n.pos > best.pos {
			best = n
		}
	}
	return best.name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
