package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductGroupCrude is the product group label reported for crude oil and condensates
const ProductGroupCrude = "Crude/Condensates"

// Vessel is one leg of a cargo movement. Vessels of a movement keep the
// order in which the cargo passed through them.
type Vessel struct {
	Name      Optional[string]
	Class     Optional[string]
	Charterer Optional[string]
}

// Movement represents a single cargo movement as returned by the movements service
type Movement struct {
	// LoadEnd is the raw end timestamp of the first load event
	LoadEnd Optional[string]
	// UnloadStart is the raw start timestamp of the first unload event
	UnloadStart Optional[string]

	Vessels      []Vessel
	Quantity     Optional[decimal.Decimal]
	Destination  Optional[string]
	ProductGroup Optional[string]
	Grade        Optional[string]
	STSEventType Optional[string]

	// Set by the transform stage: LoadEndAt orders movements, LoadDate and
	// UnloadDate hold the DD.MM.YYYY rendering of the raw timestamps.
	LoadEndAt  Optional[time.Time]
	LoadDate   Optional[string]
	UnloadDate Optional[string]
}

// FirstVesselClass returns the class of the first vessel, if any
func (m Movement) FirstVesselClass() Optional[string] {
	if len(m.Vessels) == 0 {
		return None[string]()
	}
	return m.Vessels[0].Class
}

// VesselNames returns the present vessel names in position order
func (m Movement) VesselNames() []string {
	return collectVessels(m.Vessels, func(v Vessel) Optional[string] { return v.Name })
}

// VesselClasses returns the present vessel classes in position order
func (m Movement) VesselClasses() []string {
	return collectVessels(m.Vessels, func(v Vessel) Optional[string] { return v.Class })
}

// VesselCharterers returns the present charterer labels in position order
func (m Movement) VesselCharterers() []string {
	return collectVessels(m.Vessels, func(v Vessel) Optional[string] { return v.Charterer })
}

func collectVessels(vessels []Vessel, field func(Vessel) Optional[string]) []string {
	out := make([]string, 0, len(vessels))
	for _, v := range vessels {
		if value, ok := field(v).Get(); ok {
			out = append(out, value)
		}
	}
	return out
}

// IsCrude reports whether the movement's product group is crude/condensates.
// The comparison is exact and case-sensitive.
func (m Movement) IsCrude() bool {
	group, ok := m.ProductGroup.Get()
	return ok && group == ProductGroupCrude
}
