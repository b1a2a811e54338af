package features

// Default column declarations for the shopper-behaviour dataset.
var (
	DefaultNumeric = []string{
		"Age",
		"Purchase Amount (USD)",
		"Previous Purchases",
		"Frequency of Purchases",
		"Review Rating",
	}
	DefaultCategorical = []string{
		"Gender",
		"Category",
		"Payment Method",
		"Shipping Type",
		"Discount Applied",
		"Promo Code Used",
		"Subscription Status",
		"Preferred Payment Method",
		"Season",
	}
)

// Schema declares which columns are numeric and which are categorical.
// Columns absent from a table are skipped.
type Schema struct {
	Numeric     []string
	Categorical []string
	// IncludeCategorical appends the encoded categorical codes to the
	// clustering matrix after the standardized numeric columns.
	IncludeCategorical bool
}

// DefaultSchema returns the shopper-behaviour column declarations.
func DefaultSchema() Schema {
	return Schema{
		Numeric:     append([]string(nil), DefaultNumeric...),
		Categorical: append([]string(nil), DefaultCategorical...),
	}
}
