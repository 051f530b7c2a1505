package spatial

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Geohash encodes p at the given precision (1-12 characters). Bits
// alternate between longitude and latitude, starting with longitude.
func Geohash(p Point, precision int) string {
	precision = max(1, min(precision, 12))

	lat := [2]float64{-90, 90}
	lon := [2]float64{-180, 180}
	out := make([]byte, 0, precision)

	even := true
	var ch, n int
	for len(out) < precision {
		rng, v := &lat, p.Lat
		if even {
			rng, v = &lon, p.Lon
		}
		ch <<= 1
		if mid := (rng[0] + rng[1]) / 2; v > mid {
			ch |= 1
			rng[0] = mid
		} else {
			rng[1] = mid
		}
		even = !even

		if n++; n == 5 {
			out = append(out, geohashAlphabet[ch])
			ch, n = 0, 0
		}
	}
	return string(out)
}
