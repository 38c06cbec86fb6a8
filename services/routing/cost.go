package routing

import (
	"sort"

	"github.com/telacare/inference-core/services/providers"
)

// EstimateCostCents prices reported token usage against a per-1k-token USD
// rate. Local backends carry a zero rate and therefore a zero estimate.
func EstimateCostCents(usage providers.Usage, costPer1K float64) float64 {
	total := usage.TotalTokens
	if total == 0 {
		total = usage.PromptTokens + usage.CompletionTokens
	}
	return float64(total) / 1000.0 * costPer1K * 100.0
}

// biasOrdering reorders candidates by cost according to classified
// complexity: simple (or an explicit cheapest preference) sorts cheapest
// first, complex and critical sort costliest first on the assumption that
// price tracks capability. The sort is stable so the resolver's ordering
// breaks ties.
func biasOrdering(candidates []string, costTable map[string]float64, complexity Complexity, preferCheapest bool) []string {
	ordered := make([]string, len(candidates))
	copy(ordered, candidates)

	cheapestFirst := preferCheapest || complexity == ComplexitySimple
	sort.SliceStable(ordered, func(i, j int) bool {
		if cheapestFirst {
			return costTable[ordered[i]] < costTable[ordered[j]]
		}
		return costTable[ordered[i]] > costTable[ordered[j]]
	})

	return ordered
}
