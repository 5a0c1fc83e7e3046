package importer

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// inline tags that may pass through from spreadsheet text, with their permitted attributes
var allowedTags = map[atom.Atom][]string{
	atom.B:      nil,
	atom.Strong: nil,
	atom.I:      nil,
	atom.Em:     nil,
	atom.U:      nil,
	atom.Br:     nil,
	atom.Sup:    nil,
	atom.Sub:    nil,
	atom.Span:   nil,
	atom.A:      {"href", "title"},
}

// text nodes only need the markup-significant characters escaped
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var allowedSchemes = map[string]bool{"http": true, "https": true, "mailto": true}

func safeHref(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return allowedSchemes[strings.ToLower(u.Scheme)]
}

// Sanitize escapes text for embedding in markup. Allow-listed inline tags
// survive with their permitted attributes; any other markup is escaped.
func Sanitize(text string) string {
	if !strings.ContainsAny(text, "<>&") {
		return text
	}

	var (
		out  strings.Builder
		open []atom.Atom
	)
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				out.WriteString(textEscaper.Replace(string(z.Raw())))
			}
			break
		}

		raw := string(z.Raw())
		switch tt {
		case html.TextToken:
			out.WriteString(textEscaper.Replace(string(z.Text())))

		case html.StartTagToken, html.SelfClosingTagToken:
			token := z.Token()
			attrs, ok := allowedTags[token.DataAtom]
			if !ok {
				out.WriteString(textEscaper.Replace(raw))
				continue
			}
			writeStartTag(&out, token, attrs)
			if token.DataAtom != atom.Br && tt == html.StartTagToken {
				open = append(open, token.DataAtom)
			}

		case html.EndTagToken:
			token := z.Token()
			if _, ok := allowedTags[token.DataAtom]; !ok {
				out.WriteString(textEscaper.Replace(raw))
				continue
			}
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] == token.DataAtom {
					// close anything left open inside it first
					for j := len(open) - 1; j >= i; j-- {
						out.WriteString("</" + open[j].String() + ">")
					}
					open = open[:i]
					break
				}
			}

		default:
			// comments and doctypes are dropped
		}
	}

	for i := len(open) - 1; i >= 0; i-- {
		out.WriteString("</" + open[i].String() + ">")
	}
	return out.String()
}

func writeStartTag(out *strings.Builder, token html.Token, permitted []string) {
	out.WriteString("<" + token.DataAtom.String())
	for _, attr := range token.Attr {
		if attr.Namespace != "" || !contains(permitted, attr.Key) {
			continue
		}
		if attr.Key == "href" && !safeHref(attr.Val) {
			continue
		}
		out.WriteString(" " + attr.Key + `="` + html.EscapeString(attr.Val) + `"`)
	}
	out.WriteString(">")
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
