// Package domain models USGS earthquake feed data.
//
// # Data Source
//
// Records come from the USGS FDSN event web service,
// https://earthquake.usgs.gov/fdsnws/event/1/query, requested with
// format=geojson. The response is a GeoJSON FeatureCollection:
//
//	{ "features": [ { "properties": { "mag": 6.2, "place": "...", "time": 1500000000000, "url": "..." } } ] }
//
// Only the four properties above are read. Geometry, ids and the remaining
// USGS properties (felt, cdi, tsunami, ...) are ignored.
//
// # Tolerant Field Access
//
// USGS omits or nulls properties for some events (reviewed events without a
// computed magnitude have "mag": null). Every field is read through an
// explicit optional accessor that returns a fixed default when the field is
// absent, null or of the wrong JSON type:
//
//	mag   -> 0.0
//	place -> ""
//	time  -> 0
//	url   -> ""
//
// No string-to-number coercion is performed.
//
// # Location Format
//
// USGS place strings carry an optional offset phrase ahead of the literal
// separator " of ":
//
//	"10km NE of Example City"  ->  offset "10km NE of", primary "Example City"
//	"Pacific-Antarctic Ridge"  ->  offset "Near the",   primary "Pacific-Antarctic Ridge"
//
// See [SplitLocation].
//
// # Failure Semantics
//
// The fetch-and-parse core never raises. Malformed endpoints, network failures
// and malformed responses are logged and collapse into an empty or partial
// record list. [Batch.Outcome] keeps the distinction for observability.
package domain
