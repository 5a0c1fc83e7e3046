package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContentType selects the heading rules applied by Format
type ContentType string

const (
	ContentOverview        ContentType = "overview"
	ContentTableOfContents ContentType = "tableOfContents"
	ContentSegmentation    ContentType = "segmentCompanies"
)

const (
	maxCapsHeadingLen  = 80
	maxColonHeadingLen = 100
	maxHeadingLevel    = 4
)

// glyphs that mark a bullet even when text follows without a space
var bulletGlyphs = []rune{'•', '●', '○', '◦', '▪', '■', '□', '►', '▸', '➢', '➤', '✓', '✔', '·'}

// glyphs that only mark a bullet when followed by whitespace
var spacedBulletGlyphs = []rune{'-', '*', '–', '—'}

var (
	numberedItemRe = regexp.MustCompile(`^(\d{1,3})[.)\-–]\s*(.*)$`)
	tocSectionRe   = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})*)(\.?)\s+(\S.*)$`)
)

var sectionTitles = map[string]bool{
	"executive summary":     true,
	"introduction":          true,
	"report overview":       true,
	"market overview":       true,
	"market definition":     true,
	"market dynamics":       true,
	"drivers":               true,
	"market drivers":        true,
	"restraints":            true,
	"opportunities":         true,
	"challenges":            true,
	"key findings":          true,
	"key market trends":     true,
	"research methodology":  true,
	"methodology":           true,
	"scope of the report":   true,
	"report scope":          true,
	"market segmentation":   true,
	"segmentation":          true,
	"regional analysis":     true,
	"competitive landscape": true,
	"key players":           true,
	"key companies":         true,
	"companies profiled":    true,
	"recent developments":   true,
	"conclusion":            true,
	"list of tables":        true,
	"list of figures":       true,
	"appendix":              true,
}

type lineKind int

const (
	linePlain lineKind = iota
	lineBullet
	lineNumbered
	lineHeading
)

type classifiedLine struct {
	kind   lineKind
	text   string
	number int
	level  int
}

var lineNormalizer = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\t", " ", "\u00a0", " ")

// Format converts free text into paragraph, list and heading markup. Whitespace-only
// input yields "". Text content is passed through Sanitize.
func Format(text string, contentType ContentType) string {
	text = lineNormalizer.Replace(text)
	if strings.TrimSpace(text) == "" {
		return ""
	}

	f := &formatter{contentType: contentType}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			f.endParagraph()
			continue
		}
		f.add(f.classify(line))
	}
	f.endParagraph()
	return strings.Join(f.blocks, "\n")
}

type formatter struct {
	contentType ContentType
	blocks      []string

	plain     []string
	listKind  lineKind
	listStart int
	items     []string
}

func (f *formatter) classify(line string) classifiedLine {
	if item, ok := bulletItem(line); ok {
		return classifiedLine{kind: lineBullet, text: item}
	}

	if f.contentType == ContentTableOfContents {
		if m := tocSectionRe.FindStringSubmatch(line); m != nil {
			depth := strings.Count(m[1], ".") + 1
			if depth > 1 || m[2] == "." {
				level := depth + 1
				if level > maxHeadingLevel {
					level = maxHeadingLevel
				}
				return classifiedLine{kind: lineHeading, text: line, level: level}
			}
		}
	}

	if m := numberedItemRe.FindStringSubmatch(line); m != nil {
		rest := strings.TrimSpace(m[2])
		if rest != "" && !startsWithDigit(rest) {
			n, _ := strconv.Atoi(m[1])
			return classifiedLine{kind: lineNumbered, text: rest, number: n}
		}
	}

	if heading, ok := headingText(line); ok {
		level := 3
		if f.contentType == ContentTableOfContents {
			level = 2
		}
		return classifiedLine{kind: lineHeading, text: heading, level: level}
	}

	return classifiedLine{kind: linePlain, text: line}
}

func (f *formatter) add(line classifiedLine) {
	switch line.kind {
	case lineBullet, lineNumbered:
		f.flushPlain()
		if len(f.items) > 0 && f.listKind != line.kind {
			f.flushList()
		}
		if len(f.items) == 0 {
			f.listKind = line.kind
			f.listStart = line.number
		}
		f.items = append(f.items, "<li>"+Sanitize(line.text)+"</li>")
	case lineHeading:
		f.endParagraph()
		f.blocks = append(f.blocks, fmt.Sprintf("<h%d>%s</h%d>", line.level, Sanitize(line.text), line.level))
	default:
		f.flushList()
		f.plain = append(f.plain, Sanitize(line.text))
	}
}

func (f *formatter) flushPlain() {
	if len(f.plain) == 0 {
		return
	}
	f.blocks = append(f.blocks, "<p>"+strings.Join(f.plain, "<br>")+"</p>")
	f.plain = f.plain[:0]
}

func (f *formatter) flushList() {
	if len(f.items) == 0 {
		return
	}
	body := strings.Join(f.items, "")
	if f.listKind == lineBullet {
		f.blocks = append(f.blocks, "<ul>"+body+"</ul>")
	} else if f.listStart > 1 {
		f.blocks = append(f.blocks, fmt.Sprintf(`<ol start="%d">%s</ol>`, f.listStart, body))
	} else {
		f.blocks = append(f.blocks, "<ol>"+body+"</ol>")
	}
	f.items = f.items[:0]
}

func (f *formatter) endParagraph() {
	f.flushPlain()
	f.flushList()
}

func bulletItem(line string) (string, bool) {
	r, size := utf8.DecodeRuneInString(line)
	rest := line[size:]
	for _, g := range bulletGlyphs {
		if r == g {
			item := strings.TrimSpace(rest)
			return item, item != ""
		}
	}
	for _, g := range spacedBulletGlyphs {
		if r == g {
			next, _ := utf8.DecodeRuneInString(rest)
			if !unicode.IsSpace(next) {
				return "", false
			}
			item := strings.TrimSpace(rest)
			return item, item != ""
		}
	}
	return "", false
}

func headingText(line string) (string, bool) {
	n := utf8.RuneCountInString(line)
	bare := strings.TrimSpace(strings.TrimSuffix(line, ":"))

	if sectionTitles[strings.ToLower(bare)] {
		return bare, true
	}
	if strings.HasSuffix(line, ":") && n <= maxColonHeadingLen && bare != "" {
		return bare, true
	}
	if n <= maxCapsHeadingLen && isAllCaps(line) {
		return bare, true
	}
	return "", false
}

func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if unicode.IsLower(r) {
				return false
			}
			letters++
		}
	}
	return letters >= 3
}

func startsWithDigit(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsDigit(r)
}
