package gacha

import (
	"errors"
	"math"
)

var (
	ErrInvalidProb    = errors.New("invalid probability p; must be 0..1")
	ErrInvalidWeights = errors.New("invalid rarity weights")
)

// Draw runs one Bernoulli trial with probability p.
// p <= 0 never hits, p >= 1 always hits, anything else compares against rng.
func Draw(p float64, rng RandomSource) (bool, error) {
	if err := validateProb(p); err != nil {
		return false, err
	}
	switch {
	case p <= 0:
		return false, nil
	case p >= 1:
		return true, nil
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	return rng.Float64() < p, nil
}

func validateProb(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 || p > 1 {
		return ErrInvalidProb
	}
	return nil
}

// validPercent reports whether w is a usable weight on the [0,100) scale.
func validPercent(w float64) bool {
	return !math.IsNaN(w) && !math.IsInf(w, 0) && w >= 0 && w <= 100
}
