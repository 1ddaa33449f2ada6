package extract

import (
	"fmt"
	"math"
	"strings"

	"github.com/minute-repeater/restocked"
)

// DefaultMaxVariants is the default truncation cap for variant
// combinations per product. The cap bounds memory during expansion and
// row counts downstream, no matter how many axes a page exposes.
const DefaultMaxVariants = 100

// ExpandVariants builds the variant set as the cartesian product of the
// attribute axes, capped at maxVariants. Expansion is lazy: generation
// stops once the cap is reached instead of materializing the full set.
//
// Ordering is deterministic: axes in the order given, values in document
// order, row-major iteration (the last axis varies fastest). Identical
// input always yields the identical kept set. When the true combination
// count exceeds the cap, the returned note reads
// "variants truncated: found N, kept M"; otherwise it is empty.
func ExpandVariants(axes []restocked.Axis, maxVariants int) ([]restocked.ExtractedVariant, string) {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}

	axes = cleanAxes(axes)
	if len(axes) == 0 {
		return nil, ""
	}

	// True total combination count across all axes, saturating only when
	// the multiplication would overflow.
	total := 1
	for _, axis := range axes {
		if total > math.MaxInt/len(axis.Values) {
			total = math.MaxInt
			break
		}
		total *= len(axis.Values)
	}

	keep := total
	if keep > maxVariants {
		keep = maxVariants
	}

	variants := make([]restocked.ExtractedVariant, 0, keep)
	odometer := make([]int, len(axes))
	for len(variants) < keep {
		attrs := make(restocked.Attributes, len(axes))
		for i, axis := range axes {
			attrs[i] = restocked.Attribute{Key: axis.Name, Value: axis.Values[odometer[i]]}
		}
		variants = append(variants, restocked.ExtractedVariant{
			Attributes:  attrs,
			StockStatus: restocked.StockUnknown,
		})

		// Advance the odometer, last axis fastest.
		for i := len(odometer) - 1; i >= 0; i-- {
			odometer[i]++
			if odometer[i] < len(axes[i].Values) {
				break
			}
			odometer[i] = 0
		}
	}

	var note string
	if total > keep {
		note = fmt.Sprintf("variants truncated: found %d, kept %d", total, keep)
	}
	return variants, note
}

// TruncateVariants caps an explicit variant list, preserving order.
// Returns the truncation note, or "" when nothing was dropped.
func TruncateVariants(variants []restocked.ExtractedVariant, maxVariants int) ([]restocked.ExtractedVariant, string) {
	if maxVariants <= 0 {
		maxVariants = DefaultMaxVariants
	}
	if len(variants) <= maxVariants {
		return variants, ""
	}
	note := fmt.Sprintf("variants truncated: found %d, kept %d", len(variants), maxVariants)
	return variants[:maxVariants], note
}

// cleanAxes drops axes without a name or values and deduplicates values
// within an axis, preserving first-seen order.
func cleanAxes(axes []restocked.Axis) []restocked.Axis {
	out := make([]restocked.Axis, 0, len(axes))
	for _, axis := range axes {
		name := strings.TrimSpace(axis.Name)
		if name == "" {
			continue
		}
		seen := make(map[string]bool, len(axis.Values))
		values := make([]string, 0, len(axis.Values))
		for _, v := range axis.Values {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			key := strings.ToLower(v)
			if seen[key] {
				continue
			}
			seen[key] = true
			values = append(values, v)
		}
		if len(values) == 0 {
			continue
		}
		out = append(out, restocked.Axis{Name: name, Values: values})
	}
	return out
}
