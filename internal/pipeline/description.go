package pipeline

import (
	"regexp"

	"idqcli/internal/config"
	"idqcli/internal/refdata"
)

// KeyNormalizer derives the description lookup key from a seller SKU.
type KeyNormalizer func(sku string) string

var (
	variantSuffix = regexp.MustCompile(`F\d+$`)
	leadingDigits = regexp.MustCompile(`^\d+`)
)

// NormalizerFor returns the lookup-key normalizer for the configured
// strategy. Two rules exist because the SKU convention differs between
// adopting catalogs:
//
//   - strip_suffix removes a trailing variant tag ("10001F2" → "10001");
//     SKUs without such a tag are used verbatim.
//   - leading_digits keeps only the leading digit run ("10001-B" → "10001");
//     SKUs with no leading digits are used verbatim.
func NormalizerFor(strategy config.SKUNormalization) KeyNormalizer {
	switch strategy {
	case config.NormalizeLeadingDigits:
		return func(sku string) string {
			if digits := leadingDigits.FindString(sku); digits != "" {
				return digits
			}
			return sku
		}
	default:
		return func(sku string) string {
			return variantSuffix.ReplaceAllString(sku, "")
		}
	}
}

// MergeDescriptions left-joins rows against the description reference table
// on the normalized SKU key. Unmatched rows keep their existing fields with
// the description left unset; the output always has exactly as many rows as
// the input.
func MergeDescriptions(rows []EnrichedRow, table refdata.DescriptionTable, normalize KeyNormalizer) []EnrichedRow {
	out := make([]EnrichedRow, len(rows))
	for i, row := range rows {
		if desc, ok := table.Lookup(normalize(row.SellerSKU)); ok {
			row.Description = desc
		}
		out[i] = row
	}
	return out
}
