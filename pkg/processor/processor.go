package processor

import (
	"regexp"
	"strings"
)

type ProcessorConfig struct {
	// SentenceCount is how many sentences FirstSentences keeps by default.
	SentenceCount int
}

// Processor normalizes article text before and after summarization.
type Processor struct {
	config ProcessorConfig
}

var (
	tickerParenRegex = regexp.MustCompile(`(?i)\([^)]*ticker[^)]*\)`)
	apostropheRegex  = regexp.MustCompile(`(’|')([A-Z])\b`)
	ptRegex          = regexp.MustCompile(`(?i)\bPt\.?\b`)
	tbkRegex         = regexp.MustCompile(`(?i)\bTbk\b`)
)

func NewWithConfig(config ProcessorConfig) Processor {
	if config.SentenceCount == 0 {
		config.SentenceCount = 2
	}

	return Processor{
		config: config,
	}
}

func New() Processor {
	return NewWithConfig(ProcessorConfig{})
}

// CleanBody applies the summary body rules in order.
func (p *Processor) CleanBody(body string) string {
	body = tickerParenRegex.ReplaceAllString(body, "")
	body = CollapseWhitespace(body)
	body = p.cleanApostropheCase(body)
	body = p.normalizeCompanyAbbreviations(body)
	body = p.normalizeDotCase(body)
	return body
}

// CleanTitle only fixes PT and Tbk casing.
func (p *Processor) CleanTitle(title string) string {
	return p.normalizeCompanyAbbreviations(title)
}

// FirstSentences keeps the first SentenceCount dot-separated sentences.
func (p *Processor) FirstSentences(text string) string {
	parts := strings.Split(text, ".")
	if len(parts) <= p.config.SentenceCount {
		return strings.TrimSpace(text)
	}

	kept := make([]string, 0, p.config.SentenceCount)
	for _, part := range parts[:p.config.SentenceCount] {
		kept = append(kept, strings.TrimSpace(part))
	}
	return strings.Join(kept, ". ") + "."
}

// CollapseWhitespace replaces whitespace runs with one space and trims.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// "Ahmad’S" becomes "Ahmad’s".
func (p *Processor) cleanApostropheCase(text string) string {
	return apostropheRegex.ReplaceAllStringFunc(text, strings.ToLower)
}

func (p *Processor) normalizeCompanyAbbreviations(text string) string {
	text = ptRegex.ReplaceAllString(text, "PT")
	return tbkRegex.ReplaceAllString(text, "Tbk")
}

// normalizeDotCase turns Indonesian number formatting into English:
// 54.110.800 becomes 54,110,800 and 3,25 becomes 3.25.
// A group followed by "%" is left alone.
func (p *Processor) normalizeDotCase(text string) string {
	for {
		next, changed := replaceThousands(text)
		if !changed {
			break
		}
		text = next
	}
	return replaceDecimals(text)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// replaceThousands rewrites each non-overlapping d.ddd (not followed by %) to d,ddd.
func replaceThousands(text string) (string, bool) {
	buf := []byte(text)
	changed := false
	for i := 0; i+4 < len(buf); {
		if isDigit(buf[i]) && buf[i+1] == '.' &&
			isDigit(buf[i+2]) && isDigit(buf[i+3]) && isDigit(buf[i+4]) &&
			(i+5 >= len(buf) || buf[i+5] != '%') {
			buf[i+1] = ','
			changed = true
			i += 5
			continue
		}
		i++
	}
	return string(buf), changed
}

// replaceDecimals rewrites d,d or d,dd to a dot when no digit or comma follows.
func replaceDecimals(text string) string {
	buf := []byte(text)
	for i := 0; i+2 < len(buf); {
		if !isDigit(buf[i]) || buf[i+1] != ',' {
			i++
			continue
		}
		run := 0
		for j := i + 2; j < len(buf) && isDigit(buf[j]); j++ {
			run++
		}
		end := i + 2 + run
		if run >= 1 && run <= 2 && (end >= len(buf) || buf[end] != ',') {
			buf[i+1] = '.'
			i = end
			continue
		}
		i++
	}
	return string(buf)
}
