// This package provides a set of structs and functions which are used
// to turn a list of IP addresses into a per-country tally.
//
// tallylib is core of the geotally project. The rest of the application
// is a thin shell over it: how to read configuration, which dataset to
// open, how to print or serve results.
//
// The pipeline is strictly one-way:
//
//     file -> addresses -> resolutions -> country codes -> frequency table
//
// LoadAddresses reads raw lines. Resolver looks every address up in a
// Dataset and normalizes a country into ISO 3166-1 alpha-3 code with a
// Normalizer. Aggregate counts codes into a FrequencyTable. Join and
// Renderer are optional: they turn the table into choropleth rows.
//
// Addresses which have no match in a dataset are dropped, they never
// appear in aggregate counts. Each address still gets its own
// Resolution so a caller can explain what happened with it.
package tallylib
