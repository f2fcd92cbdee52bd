// Package dataref turns validated data identifiers into repository references
// and filters out references whose data does not exist at any level.
package dataref
