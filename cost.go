package threadchat

// Usage is the token count a run reports once it has finished.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

type TokenRates struct {
	Input  float64
	Output float64
}

// Pricing constants in dollars per million tokens.
const (
	GPT4oInputRate      = 2.5
	GPT4oOutputRate     = 10.0
	GPT4oMiniInputRate  = 0.15
	GPT4oMiniOutputRate = 0.60
	GPT41InputRate      = 2.0
	GPT41OutputRate     = 8.0
	GPT41MiniInputRate  = 0.40
	GPT41MiniOutputRate = 1.60
	O3MiniInputRate     = 1.10
	O3MiniOutputRate    = 4.40
)

// ModelPricings is a map of model names to their pricing information
var ModelPricings = map[string]TokenRates{
	"gpt-4o": {
		Input:  GPT4oInputRate,
		Output: GPT4oOutputRate,
	},
	"gpt-4o-mini": {
		Input:  GPT4oMiniInputRate,
		Output: GPT4oMiniOutputRate,
	},
	"gpt-4.1": {
		Input:  GPT41InputRate,
		Output: GPT41OutputRate,
	},
	"gpt-4.1-mini": {
		Input:  GPT41MiniInputRate,
		Output: GPT41MiniOutputRate,
	},
	"o3-mini": {
		Input:  O3MiniInputRate,
		Output: O3MiniOutputRate,
	},
}

// CostDetails represents detailed cost information for a run
type CostDetails struct {
	InputTokens  int64
	OutputTokens int64
	TotalCost    float64
}

// Cost prices the usage with the rates of model. It reports false when the
// model has no known pricing.
func (u Usage) Cost(model string) (*CostDetails, bool) {
	pricing, exists := ModelPricings[model]
	if !exists {
		return nil, false
	}

	inputCost := float64(u.InputTokens) * pricing.Input / 1000000
	outputCost := float64(u.OutputTokens) * pricing.Output / 1000000

	return &CostDetails{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalCost:    inputCost + outputCost,
	}, true
}
