package business

// Factor names a tunable weight in OptimizationFactors.
type Factor string

const (
	FactorBalance    Factor = "balance"
	FactorVolatility Factor = "volatility"
	FactorGasCost    Factor = "gas_cost"
)

// OptimizationFactors holds the user-adjustable weights for token scoring.
// The three weights are integers that always sum to exactly 100; editing one
// redistributes the remainder across the other two in proportion to their
// previous values.
type OptimizationFactors struct {
	BalanceWeight    int `json:"balance_weight"`
	VolatilityWeight int `json:"volatility_weight"`
	GasCostWeight    int `json:"gas_cost_weight"`
}

// DefaultOptimizationFactors returns the starting weight split.
func DefaultOptimizationFactors() OptimizationFactors {
	return OptimizationFactors{
		BalanceWeight:    40,
		VolatilityWeight: 30,
		GasCostWeight:    30,
	}
}

// Sum returns the total of the three weights. It is 100 after any SetWeight.
func (f OptimizationFactors) Sum() int {
	return f.BalanceWeight + f.VolatilityWeight + f.GasCostWeight
}

// SetWeight fixes one factor to value (clamped to [0,100]) and rebalances the
// other two proportionally so the weights still sum to 100.
func (f OptimizationFactors) SetWeight(factor Factor, value int) OptimizationFactors {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	var fixed, otherA, otherB *int
	switch factor {
	case FactorBalance:
		fixed, otherA, otherB = &f.BalanceWeight, &f.VolatilityWeight, &f.GasCostWeight
	case FactorVolatility:
		fixed, otherA, otherB = &f.VolatilityWeight, &f.BalanceWeight, &f.GasCostWeight
	case FactorGasCost:
		fixed, otherA, otherB = &f.GasCostWeight, &f.BalanceWeight, &f.VolatilityWeight
	default:
		return f
	}

	remainder := 100 - value
	prevTotal := *otherA + *otherB

	*fixed = value
	if prevTotal <= 0 {
		// Both other weights were zero; split the remainder evenly.
		*otherA = remainder / 2
		*otherB = remainder - *otherA
		return f
	}

	a := (remainder * *otherA) / prevTotal
	*otherA = a
	*otherB = remainder - a
	return f
}
