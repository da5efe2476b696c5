package model

// Variant identifies one arm of the post-detail experiment
type Variant string

const (
	VariantControl    Variant = "control"    // Current design, no audience data
	VariantTreatment  Variant = "treatment"  // Audience statistics panel
	VariantComparison Variant = "comparison" // Commenters vs. viewers representation panel
)

// Fixed experiment keys. The override key lives in durable client storage,
// the flag key is read from the remote flag provider.
const (
	FeatureFlagKey     = "post_detail_variant_test"
	VariantOverrideKey = "posthog_variant_override"
)

// Variants lists every valid arm in display order
var Variants = []Variant{VariantControl, VariantTreatment, VariantComparison}

// ParseVariant returns the variant named by s. Anything outside the
// enumeration reports false and must be treated as absent.
func ParseVariant(s string) (Variant, bool) {
	v := Variant(s)
	if v.Valid() {
		return v, true
	}
	return "", false
}

// Valid reports whether v is one of the three experiment arms
func (v Variant) Valid() bool {
	switch v {
	case VariantControl, VariantTreatment, VariantComparison:
		return true
	default:
		return false
	}
}

// NeedsStats reports whether the arm renders audience statistics
func (v Variant) NeedsStats() bool {
	return v == VariantTreatment || v == VariantComparison
}

// DisplayName returns the label shown in the debug variant toggle
func (v Variant) DisplayName() string {
	switch v {
	case VariantControl:
		return "Control (Current Design)"
	case VariantTreatment:
		return "Treatment (Audience Statistics)"
	case VariantComparison:
		return "Comparison (Representation)"
	default:
		return string(v)
	}
}

func (v Variant) String() string {
	return string(v)
}
