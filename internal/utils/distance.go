package utils

import "math"

// earthRadiusMiles is the mean Earth radius used for the haversine
// great-circle distance.
const earthRadiusMiles = 3959.0

// DistanceUnknown is returned when a store has no coordinates. It is
// larger than any distance on Earth so deals from such stores sort
// after every deal with a known distance instead of breaking the sort.
const DistanceUnknown = math.MaxFloat64

// DistanceMiles computes the haversine great-circle distance in miles
// between two coordinate pairs. Used only for display and sorting,
// never for eligibility.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

// DistanceMilesTo computes the distance from a customer position to an
// optionally-known store position. Either store coordinate being nil
// yields DistanceUnknown.
func DistanceMilesTo(lat, lon float64, storeLat, storeLng *float64) float64 {
	if storeLat == nil || storeLng == nil {
		return DistanceUnknown
	}
	return DistanceMiles(lat, lon, *storeLat, *storeLng)
}
