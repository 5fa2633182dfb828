// Package units defines the closed unit vocabulary used by schema fields and
// converts magnitudes between units of the same family.
//
// Every unit belongs to exactly one Family and is described by an affine map
// onto the family's base unit: base = magnitude*Factor + Offset. Only
// temperatures carry a non-zero offset.
package units

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/samuelduchesne/archetypal-core/diag"
)

// Unit is a unit tag as written in schema sources (e.g. "m", "W/m2-K").
type Unit string

// Family groups units that are mutually convertible.
type Family string

const (
	Dimensionless   Family = "dimensionless"
	Length          Family = "length"
	Area            Family = "area"
	Volume          Family = "volume"
	Temperature     Family = "temperature"
	TemperatureDiff Family = "temperature_difference"
	Power           Family = "power"
	Energy          Family = "energy"
	Pressure        Family = "pressure"
	Mass            Family = "mass"
	Time            Family = "time"
	Velocity        Family = "velocity"
	VolumeFlow      Family = "volume_flow"
	MassFlow        Family = "mass_flow"
	Density         Family = "density"
	PowerDensity    Family = "power_density"
	Conductivity    Family = "conductivity"
	UFactor         Family = "heat_transfer_coefficient"
	Resistance      Family = "thermal_resistance"
	SpecificHeat    Family = "specific_heat"
	Angle           Family = "angle"
	Illuminance     Family = "illuminance"
	Rate            Family = "rate"
	HumidityRatio   Family = "humidity_ratio"
	Conductance     Family = "thermal_conductance"
	FlowPerPower    Family = "flow_per_power"
	SpecificEnergy  Family = "specific_energy"
	Concentration   Family = "concentration"
	FlowPerArea     Family = "flow_per_area"
	FlowPerPerson   Family = "flow_per_person"
	PowerPerPerson  Family = "power_per_person"
	AreaPerPerson   Family = "area_per_person"
)

// Frequently referenced tags.
const (
	None       Unit = "dimensionless"
	Meter      Unit = "m"
	Foot       Unit = "ft"
	Inch       Unit = "in"
	Celsius    Unit = "C"
	Fahrenheit Unit = "F"
	Kelvin     Unit = "K"
	Watt       Unit = "W"
)

// Definition places a unit inside its family.
type Definition struct {
	Unit   Unit
	Family Family
	Factor float64
	Offset float64
}

// builtin spells units exactly as the IDD and Energy+.schema.epJSON do,
// including the IP units named by ip-units.
var builtin = []Definition{
	{None, Dimensionless, 1, 0},
	{"percent", Dimensionless, 0.01, 0},
	{"W/W", Dimensionless, 1, 0},
	{"kg/kg", Dimensionless, 1, 0},

	{Meter, Length, 1, 0},
	{"cm", Length, 0.01, 0},
	{"mm", Length, 0.001, 0},
	{"km", Length, 1000, 0},
	{Foot, Length, 0.3048, 0},
	{Inch, Length, 0.0254, 0},

	{"m2", Area, 1, 0},
	{"cm2", Area, 1e-4, 0},
	{"ft2", Area, 0.09290304, 0},
	{"in2", Area, 0.00064516, 0},

	{"m3", Volume, 1, 0},
	{"L", Volume, 0.001, 0},
	{"ft3", Volume, 0.028316846592, 0},
	{"gal", Volume, 0.003785411784, 0},

	{Kelvin, Temperature, 1, 0},
	{Celsius, Temperature, 1, 273.15},
	{Fahrenheit, Temperature, 5.0 / 9.0, 273.15 - 32*5.0/9.0},

	{"deltaC", TemperatureDiff, 1, 0},
	{"deltaK", TemperatureDiff, 1, 0},
	{"deltaF", TemperatureDiff, 5.0 / 9.0, 0},

	{Watt, Power, 1, 0},
	{"kW", Power, 1000, 0},
	{"Btu/h", Power, 0.29307107017, 0},
	{"ton", Power, 3516.8528421, 0},

	{"J", Energy, 1, 0},
	{"kJ", Energy, 1000, 0},
	{"Wh", Energy, 3600, 0},
	{"kWh", Energy, 3.6e6, 0},
	{"Btu", Energy, 1055.05585262, 0},

	{"Pa", Pressure, 1, 0},
	{"kPa", Pressure, 1000, 0},
	{"psi", Pressure, 6894.757293168, 0},
	{"inHg", Pressure, 3386.389, 0},
	{"inH2O", Pressure, 249.0889, 0},

	{"kg", Mass, 1, 0},
	{"g", Mass, 0.001, 0},
	{"lb", Mass, 0.45359237, 0},

	{"s", Time, 1, 0},
	{"minutes", Time, 60, 0},
	{"min", Time, 60, 0},
	{"hr", Time, 3600, 0},
	{"days", Time, 86400, 0},
	{"day", Time, 86400, 0},

	{"1/s", Rate, 1, 0},
	{"1/hr", Rate, 1.0 / 3600, 0},

	{"m/s", Velocity, 1, 0},
	{"km/h", Velocity, 1 / 3.6, 0},
	{"ft/min", Velocity, 0.00508, 0},
	{"miles/hr", Velocity, 0.44704, 0},

	{"m3/s", VolumeFlow, 1, 0},
	{"L/s", VolumeFlow, 0.001, 0},
	{"ft3/min", VolumeFlow, 0.00047194745, 0},
	{"gal/min", VolumeFlow, 0.003785411784 / 60, 0},

	{"kg/s", MassFlow, 1, 0},
	{"lb/s", MassFlow, 0.45359237, 0},
	{"lb/h", MassFlow, 0.45359237 / 3600, 0},

	{"kg/m3", Density, 1, 0},
	{"lb/ft3", Density, 16.018463, 0},

	{"W/m2", PowerDensity, 1, 0},
	{"W/ft2", PowerDensity, 10.763910417, 0},
	{"Btu/h-ft2", PowerDensity, 3.154590745, 0},

	{"W/m-K", Conductivity, 1, 0},
	{"Btu-in/h-ft2-F", Conductivity, 0.144227889, 0},
	{"Btu/h-ft-F", Conductivity, 1.730734666, 0},

	{"W/m2-K", UFactor, 1, 0},
	{"Btu/h-ft2-F", UFactor, 5.678263337, 0},

	{"W/K", Conductance, 1, 0},
	{"Btu/h-F", Conductance, 0.527528, 0},

	{"m2-K/W", Resistance, 1, 0},
	{"ft2-F-hr/Btu", Resistance, 0.1761101838, 0},

	{"J/kg-K", SpecificHeat, 1, 0},
	{"Btu/lb-F", SpecificHeat, 4186.8, 0},

	{"J/kg", SpecificEnergy, 1, 0},
	{"Btu/lb", SpecificEnergy, 2326, 0},

	{"kgWater/kgDryAir", HumidityRatio, 1, 0},
	{"lbWater/lbDryAir", HumidityRatio, 1, 0},

	{"m3/s-W", FlowPerPower, 1, 0},
	{"ft3/min-W", FlowPerPower, 0.00047194745, 0},

	{"deg", Angle, 1, 0},
	{"rad", Angle, 57.29577951308232, 0},

	{"lux", Illuminance, 1, 0},
	{"fc", Illuminance, 10.7639104, 0},

	{"ppm", Concentration, 1, 0},

	{"m3/s-m2", FlowPerArea, 1, 0},
	{"ft3/min-ft2", FlowPerArea, 0.00508, 0},
	{"m3/s-person", FlowPerPerson, 1, 0},
	{"ft3/min-person", FlowPerPerson, 0.00047194745, 0},
	{"W/person", PowerPerPerson, 1, 0},
	{"Btu/h-person", PowerPerPerson, 0.29307107017, 0},
	{"m2/person", AreaPerPerson, 1, 0},
	{"ft2/person", AreaPerPerson, 0.09290304, 0},
}

// Vocabulary is an immutable set of unit definitions. The zero value is not
// usable; start from Standard.
type Vocabulary struct {
	defs map[Unit]Definition
}

var standard = func() *Vocabulary {
	v := &Vocabulary{defs: make(map[Unit]Definition, len(builtin))}
	for _, d := range builtin {
		v.defs[d.Unit] = d
	}
	return v
}()

// Standard returns the built-in vocabulary.
func Standard() *Vocabulary { return standard }

// Extend returns a new vocabulary holding v's definitions plus defs. A
// definition for an existing unit replaces it.
func (v *Vocabulary) Extend(defs ...Definition) (*Vocabulary, error) {
	out := &Vocabulary{defs: maps.Clone(v.defs)}
	for _, d := range defs {
		if d.Unit == "" || d.Family == "" {
			return nil, fmt.Errorf("units: definition needs a unit and a family: %+v", d)
		}
		if d.Factor == 0 {
			return nil, fmt.Errorf("units: unit %q has a zero factor", d.Unit)
		}
		out.defs[d.Unit] = d
	}
	return out, nil
}

// Lookup returns the definition of u.
func (v *Vocabulary) Lookup(u Unit) (Definition, bool) {
	d, ok := v.defs[u]
	return d, ok
}

// Has reports whether u is part of the vocabulary.
func (v *Vocabulary) Has(u Unit) bool {
	_, ok := v.defs[u]
	return ok
}

// Units lists the vocabulary's units of family f in sorted order. An empty
// family lists every unit.
func (v *Vocabulary) Units(f Family) []Unit {
	var out []Unit
	for u, d := range v.defs {
		if f == "" || d.Family == f {
			out = append(out, u)
		}
	}
	slices.Sort(out)
	return out
}

// Quantity pairs a magnitude with its unit.
type Quantity struct {
	Magnitude float64
	Unit      Unit
}

func (q Quantity) String() string { return fmt.Sprintf("%g %s", q.Magnitude, q.Unit) }

// Convert expresses q in unit to.
func (v *Vocabulary) Convert(q Quantity, to Unit) (Quantity, error) {
	from, ok := v.defs[q.Unit]
	if !ok {
		return Quantity{}, &ConversionError{Kind: UnknownUnit, From: q.Unit, To: to}
	}
	target, ok := v.defs[to]
	if !ok {
		return Quantity{}, &ConversionError{Kind: UnknownUnit, From: q.Unit, To: to}
	}
	if from.Family != target.Family {
		return Quantity{}, &ConversionError{Kind: IncompatibleUnitFamily, From: q.Unit, To: to}
	}
	if from.Unit == target.Unit {
		return q, nil
	}
	base := q.Magnitude*from.Factor + from.Offset
	return Quantity{Magnitude: (base - target.Offset) / target.Factor, Unit: to}, nil
}

// Convert expresses q in unit to using the standard vocabulary.
func Convert(q Quantity, to Unit) (Quantity, error) { return standard.Convert(q, to) }

// ConversionErrorKind classifies conversion failures.
type ConversionErrorKind int

const (
	IncompatibleUnitFamily ConversionErrorKind = iota + 1
	UnknownUnit
)

var (
	// ErrIncompatibleUnitFamily matches conversions across families.
	ErrIncompatibleUnitFamily = errors.New("units: incompatible unit family")
	// ErrUnknownUnit matches conversions involving a unit outside the vocabulary.
	ErrUnknownUnit = errors.New("units: unknown unit")
)

// ConversionError reports a failed Convert.
type ConversionError struct {
	Kind     ConversionErrorKind
	From, To Unit
}

func (e *ConversionError) Error() string {
	if e.Kind == UnknownUnit {
		return fmt.Sprintf("units: cannot convert %q to %q: unknown unit", e.From, e.To)
	}
	return fmt.Sprintf("units: cannot convert %q to %q: incompatible unit family", e.From, e.To)
}

// Is matches the package sentinels.
func (e *ConversionError) Is(target error) bool {
	switch target {
	case ErrIncompatibleUnitFamily:
		return e.Kind == IncompatibleUnitFamily
	case ErrUnknownUnit:
		return e.Kind == UnknownUnit
	}
	return false
}

// Issue describes the error as a diagnostic.
func (e *ConversionError) Issue() diag.Issue {
	code := diag.CodeIncompatibleUnitFamily
	params := map[string]any{"from": string(e.From), "to": string(e.To)}
	if e.Kind == UnknownUnit {
		code = diag.CodeUnknownUnit
		params["unit"] = string(e.To)
		if !standard.Has(e.From) {
			params["unit"] = string(e.From)
		}
	}
	it := diag.At("", code, params)
	it.Cause = e
	return it
}
