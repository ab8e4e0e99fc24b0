package geospatial

import "github.com/paulmach/orb"

// RingContains runs an even-odd ray cast from pt against ring.
// The ring is closed implicitly; fewer than three vertices never contain a point.
func RingContains(ring orb.Ring, pt orb.Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	testLon, testLat := pt.Lon(), pt.Lat()
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := ring[i], ring[j]
		if (vi.Lat() > testLat) != (vj.Lat() > testLat) {
			x := (vj.Lon()-vi.Lon())*(testLat-vi.Lat())/(vj.Lat()-vi.Lat()) + vi.Lon()
			if testLon < x {
				inside = !inside
			}
		}
	}
	return inside
}
