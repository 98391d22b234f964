// Package geo holds the great-circle distance used by the nearby search.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistanceSQL is the spherical law of cosines over the latitude/longitude
// columns. Bind parameters in order: lat, lng, lat. The acos argument is
// clamped so identical or antipodal points cannot produce a domain error.
const DistanceSQL = `(6371 * acos(GREATEST(-1, LEAST(1,
	cos(radians(?)) * cos(radians(latitude)) * cos(radians(longitude) - radians(?))
	+ sin(radians(?)) * sin(radians(latitude))))))`

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the great-circle distance between a and b in kilometres.
func DistanceKm(a, b Point) float64 {
	lat1, lat2 := radians(a.Latitude), radians(b.Latitude)
	dLng := radians(b.Longitude) - radians(a.Longitude)

	x := math.Cos(lat1)*math.Cos(lat2)*math.Cos(dLng) + math.Sin(lat1)*math.Sin(lat2)
	x = math.Max(-1, math.Min(1, x))
	return EarthRadiusKm * math.Acos(x)
}

// Within reports whether b lies strictly inside radiusKm of a.
func Within(a, b Point, radiusKm float64) bool {
	return DistanceKm(a, b) < radiusKm
}

func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

func ValidLongitude(lng float64) bool {
	return !math.IsNaN(lng) && lng >= -180 && lng <= 180
}

// Box is an inclusive latitude/longitude rectangle.
type Box struct {
	North, South, East, West float64
}

func (b Box) Contains(p Point) bool {
	return p.Latitude >= b.South && p.Latitude <= b.North &&
		p.Longitude >= b.West && p.Longitude <= b.East
}
