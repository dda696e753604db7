package catalog

import (
	"errors"
	"fmt"
)

// ErrEmptyPool is returned when a slot mapping is requested over no models.
var ErrEmptyPool = errors.New("catalog: empty expert model pool")

// ModelForSlot maps a 1-based expert slot to a model from the pool by cycling
// through the pool modulo its length. Pure function of (pool, slot): the same
// selection always yields the same per-slot assignment.
func ModelForSlot(pool []string, slot int) (string, error) {
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	if slot < 1 {
		return "", fmt.Errorf("catalog: slot must be >= 1, got %d", slot)
	}
	return pool[(slot-1)%len(pool)], nil
}

// ValidateSelection checks a chairman/expert selection against the catalog:
// the expert pool must hold at least MinExpertModels catalog-known entries
// (duplicates allowed) and the chairman must be catalog-known.
func (c *Catalog) ValidateSelection(chairman string, experts []string) error {
	if len(experts) < MinExpertModels {
		return fmt.Errorf("catalog: selection needs at least %d expert model(s), got %d",
			MinExpertModels, len(experts))
	}
	for _, m := range experts {
		if !c.Known(m) {
			return fmt.Errorf("catalog: unknown expert model %q", m)
		}
	}
	if !c.Known(chairman) {
		return fmt.Errorf("catalog: unknown chairman model %q", chairman)
	}
	return nil
}
