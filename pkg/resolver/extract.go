package resolver

import (
	"context"

	"github.com/xhad/newsflow/pkg/llm"
)

const extractSystem = "You extract information from financial news. Answer with JSON only."

var companyPrompt = llm.NewTemplate(`Extract every company name mentioned in the summarized article below.

Summarized Article:
{{.body}}

Instructions:
- Copy each company name exactly as written. Do not shorten or translate it.
- Include every company you can find.
- If the article names no company, return an empty list.

Return JSON of the form {"company": ["<name>", ...]}.`, "body")

var tickerPrompt = llm.NewTemplate(`Extract every stock ticker symbol that appears in the article below.

Article:
{{.body}}

Instructions:
- Copy each ticker exactly as written. Do not infer tickers from company names.
- Include every ticker you can find.
- If the article contains no ticker, return an empty list.

Return JSON of the form {"tickers": ["<ticker>", ...]}.`, "body")

type CompanyResult struct {
	Company []string `json:"company" validate:"dive,max=200"`
}

func (r CompanyResult) Validate() error {
	return llm.ValidateStruct(r)
}

type TickerResult struct {
	Tickers []string `json:"tickers" validate:"dive,max=20"`
}

func (r TickerResult) Validate() error {
	return llm.ValidateStruct(r)
}

func (r *Resolver) extractCompanies(ctx context.Context, text string) ([]string, error) {
	prompt, err := companyPrompt.Render(map[string]any{"body": text})
	if err != nil {
		return nil, err
	}
	result, err := llm.Complete[CompanyResult](ctx, r.pool, llm.Request{
		Task:   "company_names",
		System: extractSystem,
		Prompt: prompt,
	})
	if err != nil {
		return nil, err
	}
	return result.Company, nil
}

func (r *Resolver) extractTickers(ctx context.Context, text string) ([]string, error) {
	prompt, err := tickerPrompt.Render(map[string]any{"body": text})
	if err != nil {
		return nil, err
	}
	result, err := llm.Complete[TickerResult](ctx, r.pool, llm.Request{
		Task:   "tickers",
		System: extractSystem,
		Prompt: prompt,
	})
	if err != nil {
		return nil, err
	}
	return result.Tickers, nil
}
