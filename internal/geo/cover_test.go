package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func covered(ranges []Range, hash string) bool {
	for _, r := range ranges {
		if r.Contains(hash) {
			return true
		}
	}
	return false
}

func TestCoverRadius(t *testing.T) {
	centerLat, centerLng := -25.7479, 28.2293

	t.Run("ReturnsAtMostNineRanges", func(t *testing.T) {
		ranges := CoverRadius(centerLat, centerLng, 50)
		require.NotEmpty(t, ranges)
		assert.LessOrEqual(t, len(ranges), 9)
	})

	t.Run("CoversEveryPointInsideRadius", func(t *testing.T) {
		// Walk a grid over the disc; every point within the radius must
		// land in a range, whatever cell boundaries it straddles.
		const radiusKm = 50.0
		ranges := CoverRadius(centerLat, centerLng, radiusKm)

		for dLat := -0.5; dLat <= 0.5; dLat += 0.05 {
			for dLng := -0.5; dLng <= 0.5; dLng += 0.05 {
				lat := centerLat + dLat
				lng := centerLng + dLng
				if Distance(centerLat, centerLng, lat, lng) > radiusKm {
					continue
				}
				assert.True(t, covered(ranges, Encode(lat, lng)),
					"point (%f, %f) inside the radius not covered", lat, lng)
			}
		}
	})

	t.Run("SmallRadiusUsesFinerCells", func(t *testing.T) {
		small := CoverRadius(centerLat, centerLng, 1)
		large := CoverRadius(centerLat, centerLng, 500)
		require.NotEmpty(t, small)
		require.NotEmpty(t, large)
		assert.Greater(t, len(small[0].Lower), len(large[0].Lower))
	})

	t.Run("HugeRadiusFallsBackToFullScan", func(t *testing.T) {
		ranges := CoverRadius(centerLat, centerLng, 15000)
		require.Len(t, ranges, 1)
		assert.Equal(t, "", ranges[0].Lower)
		assert.True(t, ranges[0].Contains(Encode(89, 179)))
		assert.True(t, ranges[0].Contains(Encode(-89, -179)))
	})

	t.Run("NearPoleDoesNotPanic", func(t *testing.T) {
		ranges := CoverRadius(89.9, 0, 10)
		assert.NotEmpty(t, ranges)
	})
}

func TestEncode(t *testing.T) {
	hash := Encode(-25.7479, 28.2293)
	assert.Len(t, hash, StoragePrecision)
	assert.Equal(t, hash, Encode(-25.7479, 28.2293))

	// Distant points never share a storage hash
	assert.NotEqual(t, hash, Encode(51.5074, -0.1278))
}
