package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Region selects the IVA rate table. Madeira and the Azores apply reduced rates.
type Region string

const (
	RegionMainland Region = "continente"
	RegionMadeira  Region = "madeira"
	RegionAzores   Region = "acores"
)

// VATRates are the three IVA rates of a region, in percent.
type VATRates struct {
	Standard     decimal.Decimal `json:"standard"`
	Intermediate decimal.Decimal `json:"intermediate"`
	Reduced      decimal.Decimal `json:"reduced"`
}

// IncomeCategory is a Modelo 10 income category.
type IncomeCategory struct {
	Code            string          `json:"code"`
	Label           string          `json:"label"`
	WithholdingRate decimal.Decimal `json:"withholding_rate"`
}

var vatRatesByRegion = map[Region][3]int64{
	RegionMainland: {23, 13, 6},
	RegionMadeira:  {22, 12, 5},
	RegionAzores:   {16, 9, 4},
}

var incomeCategories = []struct {
	code  string
	label string
	rate  string
}{
	{"A", "Trabalho dependente", "0"},
	{"B", "Rendimentos empresariais e profissionais", "25"},
	{"E", "Rendimentos de capitais", "28"},
	{"F", "Rendimentos prediais", "25"},
	{"G", "Incrementos patrimoniais", "0"},
	{"H", "Pensões", "0"},
}

// Catalog holds the tax tables the engine reads. It is built once at startup
// and shared read-only; every accessor returns a copy.
type Catalog struct {
	region     Region
	rates      VATRates
	categories []IncomeCategory
	byCode     map[string]int
}

// NewCatalog builds the catalog for region. An empty region means mainland.
func NewCatalog(region Region) (*Catalog, error) {
	if region == "" {
		region = RegionMainland
	}
	region = Region(strings.ToLower(strings.TrimSpace(string(region))))
	rates, ok := vatRatesByRegion[region]
	if !ok {
		return nil, fmt.Errorf("unknown IVA region %q", region)
	}

	c := &Catalog{
		region: region,
		rates: VATRates{
			Standard:     decimal.NewFromInt(rates[0]),
			Intermediate: decimal.NewFromInt(rates[1]),
			Reduced:      decimal.NewFromInt(rates[2]),
		},
		byCode: make(map[string]int, len(incomeCategories)),
	}
	for i, ic := range incomeCategories {
		c.categories = append(c.categories, IncomeCategory{
			Code:            ic.code,
			Label:           ic.label,
			WithholdingRate: decimal.RequireFromString(ic.rate),
		})
		c.byCode[ic.code] = i
	}
	return c, nil
}

// MustCatalog is NewCatalog that panics on an unknown region.
func MustCatalog(region Region) *Catalog {
	c, err := NewCatalog(region)
	if err != nil {
		panic(err)
	}
	return c
}

// Region returns the region the rates belong to.
func (c *Catalog) Region() Region { return c.region }

// VATRates returns the region's IVA rates.
func (c *Catalog) VATRates() VATRates { return c.rates }

// RateFor returns the rate of a VAT band field.
func (c *Catalog) RateFor(f Field) (decimal.Decimal, bool) {
	switch f {
	case FieldVATStandard:
		return c.rates.Standard, true
	case FieldVATIntermediate:
		return c.rates.Intermediate, true
	case FieldVATReduced:
		return c.rates.Reduced, true
	}
	return decimal.Zero, false
}

// BandFor maps a tax percentage to the VAT band field carrying it in this region.
func (c *Catalog) BandFor(percent decimal.Decimal) (Field, bool) {
	switch {
	case percent.Equal(c.rates.Standard):
		return FieldVATStandard, true
	case percent.Equal(c.rates.Intermediate):
		return FieldVATIntermediate, true
	case percent.Equal(c.rates.Reduced):
		return FieldVATReduced, true
	}
	return "", false
}

// Category looks up an income category by code, case-insensitively.
func (c *Catalog) Category(code string) (IncomeCategory, bool) {
	i, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return IncomeCategory{}, false
	}
	return c.categories[i], true
}

// Categories returns every income category in catalog order.
func (c *Catalog) Categories() []IncomeCategory {
	return append([]IncomeCategory(nil), c.categories...)
}
