package source

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// missingColumns returns the required columns absent from present.
func missingColumns(present map[string]int) []string {
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// parsePrice parses a price field. Empty, non-numeric and non-finite values are rejected.
func parsePrice(name, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty %s", name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", name, s, err)
	}
	if err := checkFinite(name, v); err != nil {
		return 0, err
	}
	return v, nil
}

// parseVolume parses a volume field. Empty means 0.
func parseVolume(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse volume %q: %w", s, err)
	}
	if err := checkFinite(colVolume, v); err != nil {
		return 0, err
	}
	return v, nil
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("non-finite %s %v", name, v)
	}
	return nil
}
