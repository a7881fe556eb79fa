package domain

// A WGS84 point, longitude first because that is the order the routing
// provider expects in its payloads.
type Coordinates struct {
	Lon float64
	Lat float64
}

// LonLat returns the point as a [lon, lat] pair for provider requests.
func (c Coordinates) LonLat() []float64 { return []float64{c.Lon, c.Lat} }
