package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contentType ContentType
		want        string
	}{
		{
			name:        "whitespace only",
			input:       "  \n\t \r\n ",
			contentType: ContentOverview,
			want:        "",
		},
		{
			name:        "consecutive bullets form one list",
			input:       "- Item A\n- Item B",
			contentType: ContentOverview,
			want:        "<ul><li>Item A</li><li>Item B</li></ul>",
		},
		{
			name:        "plain lines join into one paragraph",
			input:       "First line\r\nSecond line\n\nThird",
			contentType: ContentOverview,
			want:        "<p>First line<br>Second line</p>\n<p>Third</p>",
		},
		{
			name:        "numbered items with mixed separators",
			input:       "1. Alpha\n2) Beta\n3- Gamma",
			contentType: ContentOverview,
			want:        "<ol><li>Alpha</li><li>Beta</li><li>Gamma</li></ol>",
		},
		{
			name:        "numbered list keeps its start",
			input:       "4. Delta\n5. Epsilon",
			contentType: ContentOverview,
			want:        `<ol start="4"><li>Delta</li><li>Epsilon</li></ol>`,
		},
		{
			name:        "glyph bullets with and without spacing",
			input:       "Intro text\n• Point one\n•Point two\nClosing",
			contentType: ContentOverview,
			want:        "<p>Intro text</p>\n<ul><li>Point one</li><li>Point two</li></ul>\n<p>Closing</p>",
		},
		{
			name:        "list kind change starts a new list",
			input:       "- Bullet\n1. Number",
			contentType: ContentOverview,
			want:        "<ul><li>Bullet</li></ul>\n<ol><li>Number</li></ol>",
		},
		{
			name:        "section title and all caps headings",
			input:       "Executive Summary\nThe market grew.\nKEY TRENDS\nDemand rose.",
			contentType: ContentOverview,
			want:        "<h3>Executive Summary</h3>\n<p>The market grew.</p>\n<h3>KEY TRENDS</h3>\n<p>Demand rose.</p>",
		},
		{
			name:        "colon heading before list",
			input:       "By Type:\n- BEV\n- PHEV",
			contentType: ContentSegmentation,
			want:        "<h3>By Type</h3>\n<ul><li>BEV</li><li>PHEV</li></ul>",
		},
		{
			name:        "numbers that are not list items",
			input:       "2024-2030 outlook\n1.5 million units sold",
			contentType: ContentOverview,
			want:        "<p>2024-2030 outlook<br>1.5 million units sold</p>",
		},
		{
			name:        "dash without space is text",
			input:       "-not a bullet",
			contentType: ContentOverview,
			want:        "<p>-not a bullet</p>",
		},
		{
			name:        "table of contents depth headings",
			input:       "1. Introduction\n1.1 Scope\n1.1.1 Definitions\n1.1.1.1 Deep\n2. Market",
			contentType: ContentTableOfContents,
			want:        "<h2>1. Introduction</h2>\n<h3>1.1 Scope</h3>\n<h4>1.1.1 Definitions</h4>\n<h4>1.1.1.1 Deep</h4>\n<h2>2. Market</h2>",
		},
		{
			name:        "table of contents parenthesised numbers stay list items",
			input:       "1) Overview\n2) Drivers",
			contentType: ContentTableOfContents,
			want:        "<ol><li>Overview</li><li>Drivers</li></ol>",
		},
		{
			name:        "raw markup is escaped",
			input:       "<script>alert(1)</script> Revenue & growth",
			contentType: ContentOverview,
			want:        "<p>&lt;script&gt;alert(1)&lt;/script&gt; Revenue &amp; growth</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.input, tt.contentType))
		})
	}
}

func TestFormat_ListClosedByPlainLine(t *testing.T) {
	got := Format("- A\n- B\nAfter\n- C", ContentOverview)
	assert.Equal(t, "<ul><li>A</li><li>B</li></ul>\n<p>After</p>\n<ul><li>C</li></ul>", got)
}
