package geo

import "math"

const earthRadiusMeters = 6_371_000.0

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Distance returns the great-circle distance in meters between two positions.
func Distance(from, to Coordinates) float64 {
	if from == to {
		return 0
	}
	return Haversine(from.Lat, from.Lng, to.Lat, to.Lng)
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// MetersToDegrees returns the latitude and longitude spans covering radius
// meters around lat. Used to build search boxes for spatial indexes.
func MetersToDegrees(lat, radius float64) (dLat, dLng float64) {
	dLat = radius / earthRadiusMeters * 180 / math.Pi
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-9 {
		return dLat, 180
	}
	dLng = dLat / cosLat
	return dLat, math.Min(dLng, 180)
}
