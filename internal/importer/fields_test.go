package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldResolver_AliasPriority(t *testing.T) {
	headers := []string{"Name", "Report Title", "Industry", "Report Categories"}
	resolver := NewFieldResolver(headers)

	fields := resolver.Resolve(RawRow{Values: map[string]string{
		"Name":              "Fallback Name",
		"Report Title":      "Preferred Title",
		"Industry":          "Energy",
		"Report Categories": "Automotive",
	}})

	assert.Equal(t, "Preferred Title", fields.Get(FieldTitle))
	assert.Equal(t, "Automotive", fields.Get(FieldCategory))
}

func TestFieldResolver_FirstNonEmptyWins(t *testing.T) {
	resolver := NewFieldResolver([]string{"Report Title", "Title"})

	fields := resolver.Resolve(RawRow{Values: map[string]string{
		"Report Title": "   ",
		"Title":        "Global EV Market",
	}})

	assert.Equal(t, "Global EV Market", fields.Get(FieldTitle))
}

func TestFieldResolver_HeaderNormalization(t *testing.T) {
	resolver := NewFieldResolver([]string{" report   TITLE * ", "sub category", "TABLE OF CONTENTS"})

	fields := resolver.Resolve(RawRow{Values: map[string]string{
		" report   TITLE * ": "Solar Inverters",
		"sub category":       "Inverters",
		"TABLE OF CONTENTS":  "1. Intro",
	}})

	assert.Equal(t, "Solar Inverters", fields.Get(FieldTitle))
	assert.Equal(t, "Inverters", fields.Get(FieldSubCategory))
	assert.Equal(t, "1. Intro", fields.Get(FieldTableOfContents))
	assert.True(t, resolver.Has(FieldTitle))
	assert.False(t, resolver.Has(FieldReportCode))
}

func TestFieldResolver_MissingFieldsAreEmpty(t *testing.T) {
	resolver := NewFieldResolver([]string{"Title", "Notes"})

	fields := resolver.Resolve(RawRow{Values: map[string]string{"Title": "Wind Power", "Notes": "ignored"}})

	assert.Equal(t, "", fields.Get(FieldCategory))
	assert.Equal(t, "", fields.Get(FieldOverview))
	assert.Equal(t, []string{"Notes"}, resolver.Unmapped())
}

func TestFieldSpecs_AliasesAreUnambiguous(t *testing.T) {
	owner := make(map[string]Field)
	for _, spec := range FieldSpecs {
		assert.NotEmpty(t, spec.Aliases, spec.Field)
		for _, alias := range spec.Aliases {
			n := normalizeHeader(alias)
			if prev, ok := owner[n]; ok {
				t.Errorf("alias %q claimed by both %s and %s", alias, prev, spec.Field)
			}
			owner[n] = spec.Field
		}
	}
}
