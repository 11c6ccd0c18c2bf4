// Geotally counts how many IP addresses of a list come from each
// country and prepares this tally for a choropleth map.
//
// A pipeline is simple: a file with one address per line is read,
// every address is looked up in an offline geolocation dataset, a
// country is normalized to ISO 3166-1 alpha-3 code and codes are
// counted. The resulting frequency table can be joined with a boundary
// dataset so an external map renderer gets one row per country.
//
// The tool is organized into 3 parts:
//
// Tallylib
//
// tallylib contains the pipeline itself: address loader, Resolver,
// country Normalizer, aggregation, choropleth join and renderers. It
// also knows how to download datasets with a polite HTTP client.
//
// Datasets
//
// This package has implementations of offline datasets: MaxMind
// GeoLite2 and generic MMDB files, IP2Location BIN files and plain CSV
// range databases. Downloaders fetch fresh MMDB files from MaxMind or
// DB-IP.
//
// Geotally
//
// A main package wires both of them into a CLI. It can print a tally,
// render a choropleth table, download a fresh country database and
// serve a tally over HTTP, recalculating it when the input list or the
// dataset changes.
package main
