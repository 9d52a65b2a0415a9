package classifier

import (
	"github.com/xhad/newsflow/internal/models"
	"github.com/xhad/newsflow/pkg/llm"
)

// MaxTags is the most tags an article keeps.
const MaxTags = 5

// TagsResult is the tag classification answer.
type TagsResult struct {
	Tags   []string `json:"tags" validate:"required"`
	Reason string   `json:"reason"`
}

func (r TagsResult) Validate() error {
	return llm.ValidateStruct(r)
}

// SubsectorResult is the sub-sector classification answer.
// Ten or more entries means the model listed the catalog back instead of choosing.
type SubsectorResult struct {
	Subsector []string `json:"subsector" validate:"required,max=9"`
}

func (r SubsectorResult) Validate() error {
	return llm.ValidateStruct(r)
}

// SentimentResult is the market sentiment answer.
type SentimentResult struct {
	Sentiment string `json:"sentiment" validate:"required,oneof=Bullish Bearish Neutral 'Not Applicable'"`
}

func (r SentimentResult) Validate() error {
	return llm.ValidateStruct(r)
}

// DimensionResult rates eight investment aspects 0 to 2. Missing fields count as 0.
type DimensionResult struct {
	Valuation      *int `json:"valuation" validate:"omitempty,min=0,max=2"`
	Future         *int `json:"future" validate:"omitempty,min=0,max=2"`
	Technical      *int `json:"technical" validate:"omitempty,min=0,max=2"`
	Financials     *int `json:"financials" validate:"omitempty,min=0,max=2"`
	Dividend       *int `json:"dividend" validate:"omitempty,min=0,max=2"`
	Management     *int `json:"management" validate:"omitempty,min=0,max=2"`
	Ownership      *int `json:"ownership" validate:"omitempty,min=0,max=2"`
	Sustainability *int `json:"sustainability" validate:"omitempty,min=0,max=2"`
}

func (r DimensionResult) Validate() error {
	return llm.ValidateStruct(r)
}

func (r DimensionResult) Scores() models.DimensionScores {
	value := func(v *int) int {
		if v == nil {
			return 0
		}
		return *v
	}
	return models.DimensionScores{
		Valuation:      value(r.Valuation),
		Future:         value(r.Future),
		Technical:      value(r.Technical),
		Financials:     value(r.Financials),
		Dividend:       value(r.Dividend),
		Management:     value(r.Management),
		Ownership:      value(r.Ownership),
		Sustainability: value(r.Sustainability),
	}
}
