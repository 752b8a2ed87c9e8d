package extractor

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultWindow bounds how far past the label LabelDecimalWindow looks.
	DefaultWindow = 200

	// DefaultLookahead is how many non-blank lines after the label line
	// LineProximity scans.
	DefaultLookahead = 2
)

// Rendered text often uses a no-break space between a number and its sign.
const (
	anySpace  = `[\s\x{00a0}]`
	lineSpace = `[ \t\x{00a0}]`
)

// labelPattern quotes the label and lets any whitespace run stand in for
// the spaces between its words.
func labelPattern(label string) string {
	words := strings.Fields(label)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, anySpace+`+`)
}

// regexStrategy captures the number in group 1.
type regexStrategy struct {
	name string
	re   *regexp.Regexp
}

func (s *regexStrategy) Name() string { return s.name }

func (s *regexStrategy) Match(text string) (Value, bool) {
	m := s.re.FindStringSubmatch(text)
	if m == nil {
		return Value{}, false
	}
	return Value{Display: m[1] + "%", Strategy: s.name}, true
}

// LabelDecimal matches a decimal percentage on the label's own line, with
// only non-digit characters in between ("Current APY: 4.25 %").
func LabelDecimal(label string) Strategy {
	return &regexStrategy{
		name: "label-decimal",
		re:   regexp.MustCompile(`(?i)` + labelPattern(label) + `(?:[^\d\n]*?[^\d\n.])?(\d+\.\d+)` + lineSpace + `*%`),
	}
}

// LabelDecimalWindow matches a decimal percentage within window characters
// after the label, across line breaks. It never skips over another
// percentage, so a nearer whole-number value is left to LabelInteger.
func LabelDecimalWindow(label string, window int) Strategy {
	if window < 1 {
		window = DefaultWindow
	}
	// RE2 caps repeat counts at 1000.
	if window > 1000 {
		window = 1000
	}
	return &regexStrategy{
		name: "label-decimal-window",
		re: regexp.MustCompile(fmt.Sprintf(`(?i)%s(?:[^%%]{0,%d}?[^\d.,%%])?(\d+\.\d+)%s*%%`,
			labelPattern(label), window-1, anySpace)),
	}
}

// LabelInteger matches a whole-number percentage on the label's line.
func LabelInteger(label string) Strategy {
	return &regexStrategy{
		name: "label-integer",
		re:   regexp.MustCompile(`(?i)` + labelPattern(label) + `(?:[^\d\n]*?[^\d\n.])?(\d+)` + lineSpace + `*%`),
	}
}

// standalonePercent is a <number>% token not glued to a preceding word,
// dot or comma.
var standalonePercent = regexp.MustCompile(`(?:^|[^\w.,])(\d+(?:\.\d+)?)` + anySpace + `*%`)

type lineProximity struct {
	label     string
	lookahead int
}

// LineProximity finds a line containing the label and scans it plus the
// next lookahead non-blank lines for a standalone percentage token.
func LineProximity(label string, lookahead int) Strategy {
	if lookahead < 0 {
		lookahead = DefaultLookahead
	}
	return &lineProximity{
		label:     normalizeSpace(strings.ToLower(label)),
		lookahead: lookahead,
	}
}

func (s *lineProximity) Name() string { return "line-proximity" }

func (s *lineProximity) Match(text string) (Value, bool) {
	if s.label == "" {
		return Value{}, false
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for i, line := range lines {
		if !strings.Contains(normalizeSpace(strings.ToLower(line)), s.label) {
			continue
		}

		candidates := []string{line}
		for j := i + 1; j < len(lines) && len(candidates) <= s.lookahead; j++ {
			if strings.TrimSpace(lines[j]) == "" {
				continue
			}
			candidates = append(candidates, lines[j])
		}

		for _, c := range candidates {
			if m := standalonePercent.FindStringSubmatch(c); m != nil {
				return Value{Display: m[1] + "%", Strategy: s.Name()}, true
			}
		}
	}
	return Value{}, false
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
