// Package dataid implements the data-identifier mini-language: parsing
// KEY=VALUE1[^VALUE2...] token groups with inclusive START..END[:STRIDE]
// ranges, expanding the cross product into concrete identifiers, and casting
// identifier values against a repository key schema.
package dataid
