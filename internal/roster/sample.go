package roster

import (
	"bytes"
	_ "embed"
	"fmt"
)

//go:embed sample.csv
var sampleCSV []byte

// Sample returns the built-in roster used on first run, with base prices
// filled from bases.
func Sample(bases CategoryBases) ([]Player, error) {
	players, err := ParseCSV(bytes.NewReader(sampleCSV))
	if err != nil {
		return nil, fmt.Errorf("parsing sample roster: %w", err)
	}
	FillBase(players, bases)
	return players, nil
}
