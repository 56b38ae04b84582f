package token

// Purse defines how many currency units (e.g. bits) buy one bonus pull.
type Purse struct {
	Name         string // e.g. "bits"
	UnitsPerPull int    // units per bonus pull, e.g. 500
	CarryCap     int    // most a single event may contribute to the carry-over, e.g. 400; 0 = uncapped
}

// DefaultPurse is the live tuning: 500 bits per pull, single events capped at 400 carry-over.
func DefaultPurse() Purse {
	return Purse{Name: "bits", UnitsPerPull: 500, CarryCap: 400}
}

// Cap clamps an incoming contribution to [0, CarryCap].
func (p Purse) Cap(units int) int {
	if units < 0 {
		return 0
	}
	if p.CarryCap > 0 && units > p.CarryCap {
		return p.CarryCap
	}
	return units
}

// Convert turns banked units into bonus pulls and returns what is left to bank.
func (p Purse) Convert(units int) (pulls, leftover int) {
	if units <= 0 {
		return 0, 0
	}
	if p.UnitsPerPull <= 0 {
		return 0, units
	}
	return units / p.UnitsPerPull, units % p.UnitsPerPull
}
