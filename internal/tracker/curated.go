package tracker

import "github.com/airwave/airwave/internal/model"

// DefaultHexTable is the curated ICAO hex range for airframes that are
// reliably military by assignment alone (TACAMO/Nightwatch fleet tails),
// used as detection method 1 (§4.7) ahead of the cheaper callsign/tail/type
// checks. The table is compiled in and only covers the well-known E-4B
// blocks; rows in the store's hex_to_registration table do not extend it.
func DefaultHexTable() HexTable {
	return HexTable{
		"ADFEB3": model.ClassE4B,
		"ADFEB4": model.ClassE4B,
		"ADFEB5": model.ClassE4B,
		"ADFEB6": model.ClassE4B,
	}
}

// DefaultTailTable is the curated tail-number table for detection method 3.
func DefaultTailTable() TailTable {
	return TailTable{
		"73-1676": model.ClassE4B,
		"73-1677": model.ClassE4B,
		"73-1678": model.ClassE4B,
		"73-1679": model.ClassE4B,
	}
}
