package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanBody(t *testing.T) {
	p := New()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "ticker parenthetical",
			in:   "PT Bank Central Asia Tbk (ticker: BBCA)   reported  growth",
			want: "PT Bank Central Asia Tbk reported growth",
		},
		{
			name: "ticker parenthetical mixed case",
			in:   "Astra (IDX Ticker ASII) rose",
			want: "Astra rose",
		},
		{
			name: "apostrophe case",
			in:   "The company’S revenue and BCA'S margin",
			want: "The company’s revenue and BCA's margin",
		},
		{
			name: "company abbreviations",
			in:   "pt. Astra International tbk and Pt Unilever TBK",
			want: "PT. Astra International Tbk and PT Unilever Tbk",
		},
		{
			name: "thousands separators",
			in:   "Revenue reached Rp54.110.800 million",
			want: "Revenue reached Rp54,110,800 million",
		},
		{
			name: "decimal comma",
			in:   "Net profit grew 3,25 percent to 1.250,5 billion",
			want: "Net profit grew 3.25 percent to 1,250.5 billion",
		},
		{
			name: "percent guard",
			in:   "Yield of 1.250% held",
			want: "Yield of 1.250% held",
		},
		{
			name: "long comma group untouched",
			in:   "Volume 1,234 lots",
			want: "Volume 1,234 lots",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.CleanBody(tt.in))
		})
	}
}

func TestCleanTitle(t *testing.T) {
	p := New()
	assert.Equal(t, "PT Bumi Resources Tbk Books Record 1.500 Profit", p.CleanTitle("Pt Bumi Resources TBK Books Record 1.500 Profit"))
}

func TestNormalizeDotCaseRepeats(t *testing.T) {
	p := New()
	assert.Equal(t, "1,234,567,890", p.normalizeDotCase("1.234.567.890"))
	assert.Equal(t, "1,2345", p.normalizeDotCase("1.2345"))
	assert.Equal(t, "1,5.3", replaceDecimals("1,5,3"))
}

func TestFirstSentences(t *testing.T) {
	p := New()

	assert.Equal(t, "Banks take deposits. They also lend.",
		p.FirstSentences("Banks take deposits. They also lend. Some offer insurance."))
	assert.Equal(t, "Short description.", p.FirstSentences(" Short description. "))
	assert.Equal(t, "", p.FirstSentences(""))

	three := NewWithConfig(ProcessorConfig{SentenceCount: 3})
	assert.Equal(t, "A. B. C.", three.FirstSentences("A. B. C. D."))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a \n\t b   c "))
}
