package scheme

import (
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Record is a raw scheme definition as posted by an admin form or read from a seed file.
// Every field is kept as text; Normalize decides what survives.
type Record struct {
	PeriodInterval string `json:"period_interval" yaml:"period_interval"`
	Period         string `json:"period" yaml:"period" validate:"oneof=day week month year"`
	Length         string `json:"length" yaml:"length"`
	PricingMethod  string `json:"pricing_method" yaml:"pricing_method"`
	RegularPrice   string `json:"regular_price" yaml:"regular_price"`
	SalePrice      string `json:"sale_price" yaml:"sale_price"`
	Discount       string `json:"discount" yaml:"discount"`

	// Variable products post their pricing fields under separate names.
	PricingMethodVariable *string `json:"pricing_method_variable,omitempty" yaml:"pricing_method_variable,omitempty"`
	RegularPriceVariable  *string `json:"regular_price_variable,omitempty" yaml:"regular_price_variable,omitempty"`
	SalePriceVariable     *string `json:"sale_price_variable,omitempty" yaml:"sale_price_variable,omitempty"`
	DiscountVariable      *string `json:"discount_variable,omitempty" yaml:"discount_variable,omitempty"`
}

// ProductTypeVariable is the product type whose records carry *_variable pricing fields.
const ProductTypeVariable = "variable"

// Options tune how records are normalised.
type Options struct {
	Scope       Scope
	ProductType string
	// Rejected is called for every record that could not be turned into a scheme.
	Rejected func(rec Record, err error)
}

var validate = validator.New()

// Normalize turns raw records into validated schemes. Invalid values degrade to safe
// defaults rather than failing: unparsable prices are cleared, discounts outside [0,100]
// are cleared, an override without prices falls back to inherit. Records sharing the
// same composite id collapse into one entry; the last record wins and keeps the position
// of the first one.
func Normalize(records []Record, opts Options) []Scheme {
	scope := opts.Scope
	if scope == "" {
		scope = ScopeCartItem
	}
	out := make([]Scheme, 0, len(records))
	index := make(map[string]int, len(records))
	for _, rec := range records {
		rec.Period = strings.ToLower(strings.TrimSpace(rec.Period))
		if err := validate.Struct(rec); err != nil {
			if opts.Rejected != nil {
				opts.Rejected(rec, err)
			}
			continue
		}
		s := Scheme{
			Scope:          scope,
			PeriodInterval: parseInterval(rec.PeriodInterval),
			Period:         Period(rec.Period),
			Length:         parseLength(rec.Length),
			PricingMethod:  PricingInherit,
		}
		if scope == ScopeCartItem {
			applyPricing(&s, rec, opts.ProductType)
		}
		id := s.ID()
		if pos, ok := index[id]; ok {
			out[pos] = s
			continue
		}
		index[id] = len(out)
		out = append(out, s)
	}
	for i := range out {
		out[i].Position = i
	}
	return out
}

func applyPricing(s *Scheme, rec Record, productType string) {
	if productType == ProductTypeVariable {
		if rec.RegularPriceVariable != nil {
			rec.RegularPrice = *rec.RegularPriceVariable
		}
		if rec.SalePriceVariable != nil {
			rec.SalePrice = *rec.SalePriceVariable
		}
		if rec.DiscountVariable != nil {
			rec.Discount = *rec.DiscountVariable
		}
		if rec.PricingMethodVariable != nil {
			rec.PricingMethod = *rec.PricingMethodVariable
		}
	}

	s.RegularPrice = parsePrice(rec.RegularPrice)
	s.SalePrice = parsePrice(rec.SalePrice)
	s.Discount = parseDiscount(rec.Discount)

	if strings.EqualFold(strings.TrimSpace(rec.PricingMethod), string(PricingOverride)) && (s.RegularPrice.Valid || s.SalePrice.Valid) {
		s.PricingMethod = PricingOverride
	}
}

func parseInterval(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func parseLength(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parsePrice(value string) decimal.NullDecimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

var hundred = decimal.NewFromInt(100)

func parseDiscount(value string) decimal.NullDecimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() || d.GreaterThan(hundred) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Record converts s back into its raw form. Normalize(Record()) yields s again.
func (s Scheme) Record() Record {
	rec := Record{
		PeriodInterval: strconv.Itoa(s.PeriodInterval),
		Period:         string(s.Period),
		Length:         strconv.Itoa(s.Length),
		PricingMethod:  string(s.PricingMethod),
		RegularPrice:   nullString(s.RegularPrice),
		SalePrice:      nullString(s.SalePrice),
		Discount:       nullString(s.Discount),
	}
	if rec.PricingMethod == "" {
		rec.PricingMethod = string(PricingInherit)
	}
	return rec
}

// Records converts a list of schemes into raw records.
func Records(list []Scheme) []Record {
	out := make([]Record, 0, len(list))
	for _, s := range list {
		out = append(out, s.Record())
	}
	return out
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
