// Package join implements TVSSet, the per-location set of structures, and
// the three join strategies that decide whether a new structure is
// redundant, absorbed into a stored one, or kept as a new member.
package join
