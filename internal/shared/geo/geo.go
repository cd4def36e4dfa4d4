package geo

import "math"

// earthRadiusM is the mean Earth radius used for great-circle math.
const earthRadiusM = 6371000.0

// HaversineM returns the great-circle distance in meters between two
// lat/lng pairs expressed in degrees.
func HaversineM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceM returns the haversine distance between two points in meters.
func DistanceM(a, b Point) float64 {
	return HaversineM(a.Lat, a.Lng, b.Lat, b.Lng)
}

// PathLengthM sums consecutive pairwise distances over a track.
func PathLengthM(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceM(points[i-1], points[i])
	}
	return total
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
