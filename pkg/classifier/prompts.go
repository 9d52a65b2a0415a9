package classifier

import "github.com/xhad/newsflow/pkg/llm"

const systemPrompt = "You are a financial news analyst who classifies articles. Answer with JSON only."

var tagsPrompt = llm.NewTemplate(`Choose the tags that describe the article below, using only the available tags.

Available Tags:
{{.tags}}

Article:
{{.body}}

Rules:
- Use only tags from the list above. Never invent, rename or merge tags.
- Read each tag description before deciding.
- Choose at most 5 tags and only those strongly relevant to the article. Fewer is fine.
- "IPO" is for upcoming listings only, not past ones.
- Use the exchange tag for news about the {{.exchange}} itself and the composite index tag only when the index level or performance is discussed.
- Use "Sharia Economy" when Sharia companies or the Sharia economy are mentioned.
- When unsure, leave the tag out.

Return JSON of the form {"tags": ["<tag>", ...], "reason": "<one line per tag>"}.`, "body")

var subsectorPrompt = llm.NewTemplate(`Pick the sub-sector of the article summary below from the available sub-sectors.

Available Sub-sectors:
{{.subsectors}}

Article Summary:
{{.body}}

Rules:
- Use only a slug from the list above. Never invent or modify one.
- Return exactly one sub-sector, the most specific and dominant one.

Return JSON of the form {"subsector": ["<slug>"]}.`, "body")

var sentimentPrompt = llm.NewTemplate(`Classify the market sentiment of the article below about the {{.exchange}}.

Article Summary:
{{.body}}

Rules:
- Decide only on explicit mentions of stock price movement or investor sentiment.
- "Bullish": a stock or sector is described as rising, rallying or in an uptrend.
- "Bearish": a stock or sector is described as falling, declining or in a downtrend.
- "Neutral": a stock or sector is described as stable, flat or moving sideways.
- "Not Applicable": stock prices are not discussed.

Return JSON of the form {"sentiment": "Bullish" | "Bearish" | "Neutral" | "Not Applicable"}.`, "body")

var dimensionPrompt = llm.NewTemplate(`Rate how strongly the article below relates to each investment dimension.

Article Title:
{{.title}}

Article Content:
{{.body}}

Dimensions:
- valuation: numeric effects on valuation metrics (P/E, EBITDA) or events moving market cap 2% or more in one session.
- future: forward-looking statements with timelines, projections, company guidance or analyst revisions of 5% or more.
- technical: abnormal volume (2x average or more), moves of 3% or more in one session, or clear support and resistance breaks.
- financials: year-over-year changes of 5% or more in financial metrics, earnings surprises, or material changes in debt, equity or assets.
- dividend: dividend policy changes, announcements, payout ratio changes of 3% or more, or events affecting dividend coverage.
- management: board or executive changes, insider trades above USD 1M, or governance and compensation changes.
- ownership: ownership changes above 1% of shares, large institutional moves, or short interest changes above 20%.
- sustainability: measurable ESG effects, formal sustainability programs with targets, or ESG rating changes.

Scale: 0 not related, 1 slightly related, 2 highly related.
- If the article is about the company's financial sustainability, set sustainability to 0.
- If the article states a total dividend amount or another dimension is rated 2, set dividend to 0.

Return JSON with integer fields valuation, future, technical, financials, dividend, management, ownership, sustainability.`, "title", "body")
