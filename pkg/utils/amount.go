package utils

import "math"

// SatoshiPerBTC is the fixed divisor between satoshi and BTC units.
const SatoshiPerBTC = 1e8

// RoundBTC rounds an amount to the 8 decimal places bitcoin supports.
func RoundBTC(amount float64) float64 {
	return math.Round(amount*SatoshiPerBTC) / SatoshiPerBTC
}

// SatsToBTC converts an integer satoshi value to BTC units.
func SatsToBTC(sats int64) float64 {
	return float64(sats) / SatoshiPerBTC
}
