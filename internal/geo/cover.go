package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"
)

// StoragePrecision is the geohash length stored on farm rows. Twelve
// characters resolve to well under a meter, so range scans never miss a
// farm over encoding granularity.
const StoragePrecision = 12

// Kilometers spanned by one degree of latitude, and by one degree of
// longitude at the equator.
const (
	kmPerLatDegree = 110.574
	kmPerLngDegree = 111.320
)

// Range is a half-open geohash interval [Lower, Upper] suitable for an
// indexed range scan over the geohash column.
type Range struct {
	Lower string
	Upper string
}

// Contains reports whether the stored geohash falls inside the range.
func (r Range) Contains(hash string) bool {
	return hash >= r.Lower && hash <= r.Upper
}

// Encode returns the storage geohash for a coordinate.
func Encode(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, StoragePrecision)
}

// CoverRadius returns geohash ranges that together cover the disc of
// radiusKm around the center. It picks the finest precision whose cells
// are still at least one radius tall and wide, then takes the center cell
// plus its eight neighbors. Cells are rectangles and the query region is a
// circle, so the ranges over-select; callers must discard rows whose exact
// distance exceeds the radius. No point within the radius is ever missed.
func CoverRadius(lat, lng, radiusKm float64) []Range {
	precision := precisionForRadius(lat, radiusKm)
	if precision == 0 {
		// Radius spans a sizable fraction of the globe; scan everything.
		return []Range{{Lower: "", Upper: "~"}}
	}

	center := geohash.EncodeWithPrecision(lat, lng, precision)
	cells := append([]string{center}, geohash.Neighbors(center)...)

	seen := make(map[string]struct{}, len(cells))
	ranges := make([]Range, 0, len(cells))
	for _, cell := range cells {
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		// '~' sorts above the whole geohash alphabet, so [cell, cell+"~"]
		// spans every stored hash with that prefix.
		ranges = append(ranges, Range{Lower: cell, Upper: cell + "~"})
	}
	return ranges
}

// precisionForRadius returns the finest geohash length whose cell height
// and width (at the query latitude) both cover radiusKm, or 0 if even the
// coarsest cells are too small.
func precisionForRadius(lat, radiusKm float64) uint {
	latDeg := radiusKm / kmPerLatDegree

	// Longitude degrees shrink with latitude; clamp near the poles where
	// the divisor collapses.
	cosLat := math.Cos(radians(lat))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lngDeg := radiusKm / (kmPerLngDegree * cosLat)

	for precision := uint(StoragePrecision); precision >= 1; precision-- {
		if cellHeightDeg(precision) >= latDeg && cellWidthDeg(precision) >= lngDeg {
			return precision
		}
	}
	return 0
}

// A geohash of n characters encodes 5n bits, alternating longitude-first.
func cellHeightDeg(precision uint) float64 {
	latBits := (5 * precision) / 2
	return 180 / math.Pow(2, float64(latBits))
}

func cellWidthDeg(precision uint) float64 {
	lngBits := (5*precision + 1) / 2
	return 360 / math.Pow(2, float64(lngBits))
}
