package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plaasstop-backend/internal/geo"
	"plaasstop-backend/pkg/database"
)

func TestFarm_GeohashTracksLocation(t *testing.T) {
	db, err := database.InitTestDB()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Farm{}))

	t.Run("SetOnCreate", func(t *testing.T) {
		lat, lng := -25.7479, 28.2293
		farm := Farm{Name: "Sunny Farm", Type: FarmTypeLead, Lat: &lat, Lng: &lng}
		require.NoError(t, db.Create(&farm).Error)

		var stored Farm
		require.NoError(t, db.First(&stored, farm.ID).Error)
		assert.Equal(t, geo.Encode(lat, lng), stored.Geohash)
	})

	t.Run("EmptyWithoutLocation", func(t *testing.T) {
		farm := Farm{Name: "No Location", Type: FarmTypeVendor}
		require.NoError(t, db.Create(&farm).Error)

		var stored Farm
		require.NoError(t, db.First(&stored, farm.ID).Error)
		assert.Empty(t, stored.Geohash)
	})

	t.Run("RefreshedOnSave", func(t *testing.T) {
		lat, lng := -25.7479, 28.2293
		farm := Farm{Name: "Moving Farm", Type: FarmTypeVendor, Lat: &lat, Lng: &lng}
		require.NoError(t, db.Create(&farm).Error)

		newLat, newLng := -26.2041, 28.0473
		farm.Lat, farm.Lng = &newLat, &newLng
		require.NoError(t, db.Save(&farm).Error)

		var stored Farm
		require.NoError(t, db.First(&stored, farm.ID).Error)
		assert.Equal(t, geo.Encode(newLat, newLng), stored.Geohash)
	})
}
