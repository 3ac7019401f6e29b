// Package rename applies user supplied "pattern/replacement" rules to
// generated file names.
package rename

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mohammed-shakir/wcs-downloader/internal/core/wcserr"
)

const separator = "/"

type Rule struct {
	Raw         string
	Pattern     *regexp.Regexp
	Replacement string // in regexp.Expand syntax
}

// ParseRules splits each raw rule on its single '/' and compiles the pattern.
// The replacement uses \1 and \g<name> for groups; '$' is literal.
func ParseRules(raw []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(raw))
	for _, r := range raw {
		rule, err := ParseRule(r)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func ParseRule(raw string) (Rule, error) {
	if n := strings.Count(raw, separator); n != 1 {
		return Rule{}, wcserr.Errorf(wcserr.ErrConfig,
			"substitution %q: want exactly one %q separator, found %d", raw, separator, n)
	}
	pattern, repl, _ := strings.Cut(raw, separator)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, wcserr.Wrapf(wcserr.ErrConfig, err, "substitution %q", raw)
	}
	tmpl, err := translateReplacement(repl, re)
	if err != nil {
		return Rule{}, wcserr.Wrapf(wcserr.ErrConfig, err, "substitution %q", raw)
	}
	return Rule{Raw: raw, Pattern: re, Replacement: tmpl}, nil
}

// Apply runs the rules left to right, each replacing every match. An empty
// match that starts where a non-empty one ended is replaced too.
func Apply(name string, rules []Rule) string {
	for _, r := range rules {
		name = r.replaceAll(name)
	}
	return name
}

func (r Rule) replaceAll(s string) string {
	matches := r.Pattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	out := make([]byte, 0, len(s))
	last := 0
	emit := func(m []int) {
		out = append(out, s[last:m[0]]...)
		out = r.Pattern.ExpandString(out, r.Replacement, s, m)
		last = m[1]
	}
	for i, m := range matches {
		emit(m)
		// regexp drops an empty match that starts where a non-empty one ended
		if m[1] > m[0] && (i+1 == len(matches) || matches[i+1][0] != m[1]) {
			if em := r.emptyMatchAt(s, m[1]); em != nil {
				emit(em)
			}
		}
	}
	return string(append(out, s[last:]...))
}

// maxPrefixRunes is the RE2 repeat limit.
const maxPrefixRunes = 1000

// emptyMatchAt reports the submatch indices of an empty match of the
// pattern at byte offset at, keeping the text before it as context.
func (r Rule) emptyMatchAt(s string, at int) []int {
	k := utf8.RuneCountInString(s[:at])
	if k > maxPrefixRunes {
		return nil
	}
	anchored, err := regexp.Compile(fmt.Sprintf(`^(?s:.{%d})(%s)`, k, r.Pattern.String()))
	if err != nil {
		return nil
	}
	m := anchored.FindStringSubmatchIndex(s)
	if m == nil || m[2] != at || m[3] != at {
		return nil
	}
	return m[2:]
}

// LayerName is the last element of path without its final extension. A
// leading dot does not start an extension, so ".tif" keeps its name.
func LayerName(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '.'); i > 0 && i < len(base)-1 {
		return base[:i]
	}
	return base
}

func Substitute(name string, raw []string) (string, error) {
	rules, err := ParseRules(raw)
	if err != nil {
		return "", err
	}
	return Apply(name, rules), nil
}

func translateReplacement(repl string, re *regexp.Regexp) (string, error) {
	var b strings.Builder
	b.Grow(len(repl))

	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c == '$' {
			b.WriteString("$$")
			continue
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 == len(repl) {
			return "", fmt.Errorf("replacement ends with a lone backslash")
		}
		i++
		c = repl[i]
		switch {
		case c == '0':
			j := i + 1
			for j < len(repl) && j < i+3 && isOctal(repl[j]) {
				j++
			}
			n, _ := strconv.ParseUint(repl[i:j], 8, 32)
			writeLiteral(&b, rune(n))
			i = j - 1
		case c >= '1' && c <= '9':
			if i+2 < len(repl) && isOctal(c) && isOctal(repl[i+1]) && isOctal(repl[i+2]) {
				n, _ := strconv.ParseUint(repl[i:i+3], 8, 32)
				if n > 0o377 {
					return "", fmt.Errorf("octal escape \\%s out of range", repl[i:i+3])
				}
				writeLiteral(&b, rune(n))
				i += 2
				continue
			}
			j := i + 1
			if j < len(repl) && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			n, _ := strconv.Atoi(repl[i:j])
			if n > re.NumSubexp() {
				return "", fmt.Errorf("invalid group reference %d", n)
			}
			fmt.Fprintf(&b, "${%d}", n)
			i = j - 1
		case c == 'g':
			end := strings.IndexByte(repl[i:], '>')
			if i+1 >= len(repl) || repl[i+1] != '<' || end < 0 {
				return "", fmt.Errorf("malformed \\g<...> group reference")
			}
			name := repl[i+2 : i+end]
			if err := checkGroup(name, re); err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "${%s}", name)
			i += end
		case c == '\\':
			b.WriteByte('\\')
		case escapes[c] != 0:
			b.WriteByte(escapes[c])
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			return "", fmt.Errorf("bad escape \\%c", c)
		default:
			b.WriteByte('\\')
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

var escapes = map[byte]byte{
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

// writeLiteral emits r so that Expand copies it unchanged.
func writeLiteral(b *strings.Builder, r rune) {
	if r == '$' {
		b.WriteString("$$")
		return
	}
	b.WriteRune(r)
}

func checkGroup(name string, re *regexp.Regexp) error {
	if name == "" {
		return fmt.Errorf("empty group name")
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n < 0 || n > re.NumSubexp() {
			return fmt.Errorf("invalid group reference %d", n)
		}
		return nil
	}
	if re.SubexpIndex(name) < 0 {
		return fmt.Errorf("unknown group name %q", name)
	}
	return nil
}
