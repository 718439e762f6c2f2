// Package areas groups, diffs and lays out risk area lists.
//
// Every function in this package is pure: inputs are never modified and
// results are freshly allocated, so callers may share inputs across
// goroutines.
package areas

import "covid-risk-areas/models"

// Address is the identity of an area: its four fields concatenated in
// province, city, region, addr order without a separator. Two areas whose
// region boundary was detected differently still share an address as long
// as the concatenation is unchanged.
func Address(a models.Area) string {
	return a.Province + a.City + a.Region + a.Addr
}

// EqualAddress reports whether a and b share an address.
func EqualAddress(a, b models.Area) bool {
	return Address(a) == Address(b)
}

// EqualArea reports whether a and b agree field by field. Origin is ignored.
func EqualArea(a, b models.Area) bool {
	return a.Province == b.Province &&
		a.City == b.City &&
		a.Region == b.Region &&
		a.Addr == b.Addr
}

// addressSet indexes a list by address.
func addressSet(list []models.Area) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, a := range list {
		set[Address(a)] = struct{}{}
	}
	return set
}
