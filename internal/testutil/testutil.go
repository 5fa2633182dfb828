// Package testutil provides the shared schema and document fixtures used by
// the package tests.
package testutil

import (
	"testing"

	"github.com/samuelduchesne/archetypal-core/schema"
)

// SchemaYAML is a small schema in the native format covering every field
// kind, reference classes and two extensible types.
const SchemaYAML = `version: "23.1"
objects:
  Version:
    unique: true
    fields:
      - {name: version_identifier, kind: string, default: "23.1"}
  Building:
    named: true
    unique: true
    fields:
      - {name: name, kind: string, required: true}
      - {name: north_axis, kind: real, units: deg}
      - {name: terrain, kind: enum, enum: [Country, Suburbs, City, Ocean, Urban], default: Suburbs}
      - {name: loads_convergence_tolerance_value, kind: real, minimum: 0, maximum: 0.5, exclusive_minimum: true}
      - {name: maximum_number_of_warmup_days, kind: integer, minimum: 1}
  Zone:
    named: true
    min_fields: 1
    references: [ZoneNames, ZoneAndZoneListNames]
    fields:
      - {name: name, kind: string, required: true}
      - {name: direction_of_relative_north, kind: real, units: deg}
      - {name: x_origin, kind: real, units: m}
      - {name: y_origin, kind: real, units: m}
      - {name: z_origin, kind: real, units: m}
      - {name: multiplier, kind: integer, minimum: 1, default: 1}
      - {name: ceiling_height, kind: real, units: m, keywords: [Autocalculate]}
      - {name: volume, kind: real, units: m3, keywords: [Autocalculate]}
  ZoneList:
    named: true
    references: [ZoneAndZoneListNames]
    fields:
      - {name: name, kind: string, required: true}
      - name: zones
        kind: list
        items:
          - {name: zone_name, kind: reference, object_list: [ZoneNames], required: true}
  Material:
    named: true
    min_fields: 6
    references: [MaterialName]
    fields:
      - {name: name, kind: string, required: true}
      - {name: roughness, kind: enum, required: true, enum: [VeryRough, Rough, MediumRough, MediumSmooth, Smooth, VerySmooth]}
      - {name: thickness, kind: real, units: m, ip_units: in, minimum: 0, exclusive_minimum: true, maximum: 3, required: true}
      - {name: conductivity, kind: real, units: W/m-K, minimum: 0, exclusive_minimum: true, required: true}
      - {name: density, kind: real, units: kg/m3, minimum: 0, exclusive_minimum: true, required: true}
      - {name: specific_heat, kind: real, units: J/kg-K, minimum: 100, required: true}
      - {name: thermal_absorptance, kind: real, minimum: 0, exclusive_minimum: true, maximum: 0.99999, default: 0.9}
  Construction:
    named: true
    references: [ConstructionNames]
    fields:
      - {name: name, kind: string, required: true}
      - {name: outside_layer, kind: reference, object_list: [MaterialName], required: true}
      - name: layers
        kind: list
        items:
          - {name: layer, kind: reference, object_list: [MaterialName]}
  BuildingSurface:Detailed:
    named: true
    references: [SurfaceNames]
    fields:
      - {name: name, kind: string, required: true}
      - {name: surface_type, kind: enum, required: true, enum: [Floor, Wall, Ceiling, Roof]}
      - {name: construction_name, kind: reference, object_list: [ConstructionNames], required: true}
      - {name: zone_name, kind: reference, object_list: [ZoneNames], required: true}
      - {name: outside_boundary_condition, kind: enum, enum: [Adiabatic, Surface, Outdoors, Ground]}
      - {name: sun_exposure, kind: enum, enum: [SunExposed, NoSun], default: SunExposed}
      - name: vertices
        kind: list
        items:
          - {name: vertex_x_coordinate, kind: real, units: m, required: true}
          - {name: vertex_y_coordinate, kind: real, units: m, required: true}
          - {name: vertex_z_coordinate, kind: real, units: m, required: true}
  Schedule:Day:Interval:
    named: true
    references: [DayScheduleNames]
    fields:
      - {name: name, kind: string, required: true}
      - {name: schedule_type_limits_name, kind: string}
      - {name: interpolate_to_timestep, kind: enum, enum: ["No", Average, Linear], default: "No"}
      - name: data
        kind: list
        items:
          - {name: time, kind: string}
          - {name: value_until_time, kind: real}
  EnergyManagementSystem:Sensor:
    named: true
    fields:
      - {name: name, kind: string, required: true}
      - {name: output_variable_or_output_meter_index_key_name, kind: reference}
      - {name: output_variable_or_output_meter_name, kind: string, required: true}
  Output:Variable:
    fields:
      - {name: key_value, kind: string, default: "*"}
      - {name: variable_name, kind: string, required: true}
      - {name: reporting_frequency, kind: enum, enum: [Detailed, Timestep, Hourly, Daily, Monthly, RunPeriod, Annual], default: Hourly}
`

// IDF is a legacy document valid against SchemaYAML.
const IDF = `! Sample single-zone building
Version, 23.1;

Building,
  Office,                  !- Name
  30,                      !- North Axis {deg}
  City,                    !- Terrain
  0.04,                    !- Loads Convergence Tolerance Value
  25;                      !- Maximum Number of Warmup Days

Zone,
  Core,                    !- Name
  0,                       !- Direction of Relative North {deg}
  0, 0, 0,                 !- X,Y,Z Origin {m}
  1,                       !- Multiplier
  Autocalculate,           !- Ceiling Height {m}
  Autocalculate;           !- Volume {m3}

Material,
  Concrete200, MediumRough, 0.2, 1.95, 2240, 900, 0.9;

Construction,
  ExtWall,                 !- Name
  Concrete200;             !- Outside Layer

BuildingSurface:Detailed,
  Core_Floor, Floor, ExtWall, Core, Ground, NoSun,
  0, 0, 0,
  10, 0, 0,
  10, 10, 0,
  0, 10, 0;

Schedule:Day:Interval,
  Occupancy, Fraction, No,
  08:00, 0,
  18:00, 1;

Output:Variable, *, Zone Mean Air Temperature, Hourly;
`

// Registry loads SchemaYAML and fails the test on error.
func Registry(tb testing.TB) *schema.Registry {
	tb.Helper()
	reg, err := schema.LoadBytes([]byte(SchemaYAML), schema.LoadOpt{Format: schema.FormatYAML})
	if err != nil {
		tb.Fatalf("load fixture schema: %v", err)
	}
	return reg
}
