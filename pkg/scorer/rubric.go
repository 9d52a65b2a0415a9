package scorer

import "strings"

// Rubric is the market-specific scoring criteria and credibility allow-lists.
type Rubric struct {
	Criteria string
	TopTier  []string
	National []string
}

// RubricFor returns the rubric of a market. Unknown markets get the idx rubric.
func RubricFor(market string) Rubric {
	if market == "sgx" {
		return Rubric{
			Criteria: criteria("SGX", "Singapore", "Singapore dollar", "STI"),
			TopTier:  []string{"bloomberg.com", "reuters.com", "sgx.com", "mas.gov.sg"},
			National: []string{"businesstimes.com.sg", "straitstimes.com", "theedgesingapore.com", "channelnewsasia.com"},
		}
	}
	return Rubric{
		Criteria: criteria("IDX", "Indonesian", "Rupiah", "IDX"),
		TopTier:  []string{"bloomberg.com", "reuters.com", "idx.co.id", "ojk.go.id"},
		National: []string{"kontan.co.id", "bisnis.com", "cnbcindonesia.com", "investor.id", "kompas.com", "detik.com"},
	}
}

func criteria(exchange, country, currency, index string) string {
	r := strings.NewReplacer(
		"{exchange}", exchange,
		"{country}", country,
		"{currency}", currency,
		"{index}", index,
	)
	return r.Replace(rubricText)
}

const rubricText = `News Article Scoring Criteria (0-100), up to 135 with bonus points.

Tier 0: Noise / Irrelevant (Score 0-10)
- The news has no connection to the {country} market, specific {exchange} companies, or relevant economic factors. It is generic, trivial or off-topic.

Tier 1: General Context (Score 11-40)
- General background on the {country} economy, a broad sector, or global trends with a weak or indirect link to the {exchange}. No specific company details or actionable events.

Tier 2: Notable Event (Score 41-70)
- A specific {exchange}-listed company or a direct policy change affecting a specific sector. A concrete event such as a new project, a strategic partnership, management changes, or an analyst rating update.

Tier 3: Critical & Actionable (Score 71-100)
- A major, market-moving event for a specific {exchange}-listed company that investors act on immediately:
  - Merger / Acquisition
  - Earnings report, especially beats or misses
  - Dividend announcement with rates or dates
  - Stock buyback / rights issue
  - Major insider trading
  - A government contract awarded or a major regulatory approval or rejection

Bonus Criteria (Additional Points)

1. Primary CTA (+5 points each):
  - Dividend rate and cum date
  - Policy or bill passing
  - Insider trading
  - Acquisition or merger
  - New business plan (new project, income source, partner or contract)
  - Earnings report

2. Secondary CTA (+2 points each):
  - {index} performance against the US market
  - {currency} performance
  - Net foreign buy and sell
  - Recommended stocks (stock watchlist)
  - Global commodity prices

A high quality article is actionable, commercially valuable, involves a big movement of money, or signals big changes in market cap for the industry.`
