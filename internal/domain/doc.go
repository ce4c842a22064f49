// Package domain derives catalog metadata from MET Norway buoy observation
// files.
//
// # Data Source
//
// Buoy files are netCDF (CF conventions) published on the MET Norway THREDDS
// server, e.g.
//
//	https://thredds.met.no/thredds/fileServer/obs/kystverketbuoy/2019/07/201907_Kystverket-Smartbuoy-Fauskane_Weather-Station-GillWindSensor.nc
//
// Each file holds one month of samples from one station. The reader behind
// [File] is an adapter; this package only sees attributes and variables.
//
// # File Conventions
//
// Required variables:
//
//	time       seconds since a reference timestamp, e.g. "seconds since 2019-07-01T00:00:00"
//	latitude   degrees north, one sample per time step
//	longitude  degrees east, one sample per time step
//
// Optional variables:
//
//	station_id  station identifier, never treated as a measured parameter
//
// Every other variable carrying a "standard_name" attribute is a measured
// parameter candidate (see [ParameterCandidates]).
//
// Global attributes, in the order they are consulted:
//
//	time_coverage_start, time_coverage_end  explicit bounds, used when non-empty
//	title                                   required, becomes the entry title
//	summary                                 falls back to title
//	entry_id, id, station_name              entry identifier sources
//
// # Entry Identifiers
//
// An explicit "entry_id" or "id" attribute is used verbatim. Otherwise the
// identifier is the station name with spaces removed followed by a counter,
// "Fauskane1", "Fauskane2", ... The counter is one more than the highest
// numeric suffix already stored for that prefix; the catalog's unique index on
// entry ids catches concurrent writers (see [EntryID]).
//
// # Track Geometry
//
// Longitude/latitude samples are paired by index into an ordered
// [orb.LineString] (x = longitude, y = latitude), in file order.
package domain
