package metrics

import (
	"sync"

	"github.com/modelmux/modelmux/src/models"
)

// BudgetGuard tracks lifetime spend against a USD ceiling. A limit of 0
// means unlimited. The guard is checked before dispatch; spend already in
// flight when the ceiling is crossed is still charged.
type BudgetGuard struct {
	mu       sync.Mutex
	limitUSD float64
	spentUSD float64
	byModel  map[string]float64
}

func NewBudgetGuard(limitUSD float64) *BudgetGuard {
	return &BudgetGuard{
		limitUSD: limitUSD,
		byModel:  make(map[string]float64),
	}
}

// Check fails once the ceiling has been reached.
func (b *BudgetGuard) Check() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limitUSD > 0 && b.spentUSD >= b.limitUSD {
		return &models.BudgetExceededError{SpentUSD: b.spentUSD, LimitUSD: b.limitUSD}
	}
	return nil
}

// Charge records spend for a model.
func (b *BudgetGuard) Charge(model string, costUSD float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.spentUSD += costUSD
	b.byModel[model] += costUSD
}

// Spent returns the total and per-model spend so far.
func (b *BudgetGuard) Spent() (float64, map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byModel := make(map[string]float64, len(b.byModel))
	for k, v := range b.byModel {
		byModel[k] = v
	}
	return b.spentUSD, byModel
}
