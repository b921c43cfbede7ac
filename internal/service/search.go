package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"plaasstop-backend/internal/geo"
	"plaasstop-backend/internal/model"
)

// FarmResult is one proximity search hit. Distance is pre-formatted for
// display; results are ordered nearest first.
type FarmResult struct {
	ID       uint     `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Status   string   `json:"status"`
	Products []string `json:"products"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Distance string   `json:"distance"`

	distanceKm float64
}

// farmSearcher finds farms within radiusKm of a center point, nearest
// first. Implementations differ only in how much work the store can do.
type farmSearcher interface {
	search(ctx context.Context, db *gorm.DB, lat, lng, radiusKm float64) ([]FarmResult, error)
}

// postgisSearcher delegates both the radius filter and the exact distance
// computation to PostGIS geography operators.
type postgisSearcher struct{}

func (postgisSearcher) search(ctx context.Context, db *gorm.DB, lat, lng, radiusKm float64) ([]FarmResult, error) {
	radiusM := radiusKm * 1000

	rows, err := db.WithContext(ctx).Raw(`
		SELECT id, name, type, status, products, lat, lng,
			ST_Distance(
				ST_SetSRID(ST_MakePoint(lng, lat), 4326)::geography,
				ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography
			) AS distance_m
		FROM farms
		WHERE deleted_at IS NULL
			AND lat IS NOT NULL AND lng IS NOT NULL
			AND ST_DWithin(
				ST_SetSRID(ST_MakePoint(lng, lat), 4326)::geography,
				ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography,
				?
			)
		ORDER BY distance_m ASC
	`, lng, lat, lng, lat, radiusM).Rows()
	if err != nil {
		return nil, fmt.Errorf("proximity query failed: %w", err)
	}
	defer rows.Close()

	results := []FarmResult{}
	for rows.Next() {
		var (
			r         FarmResult
			products  []byte
			distanceM float64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.Status, &products, &r.Lat, &r.Lng, &distanceM); err != nil {
			return nil, fmt.Errorf("scan farm row: %w", err)
		}
		if len(products) > 0 {
			if err := json.Unmarshal(products, &r.Products); err != nil {
				return nil, fmt.Errorf("decode products for farm %d: %w", r.ID, err)
			}
		}
		if r.Products == nil {
			r.Products = []string{}
		}
		r.distanceKm = distanceM / 1000
		r.Distance = geo.FormatDistance(r.distanceKm)
		results = append(results, r)
	}
	return results, rows.Err()
}

// geohashSearcher is the fallback for stores without native geospatial
// filtering. It covers the query disc with geohash bounding boxes, runs one
// indexed range scan per box, then discards false positives by exact
// distance. Boxes are square and the query region is a circle, so
// over-selection is expected; missing a farm inside the radius is not.
type geohashSearcher struct{}

func (geohashSearcher) search(ctx context.Context, db *gorm.DB, lat, lng, radiusKm float64) ([]FarmResult, error) {
	results := []FarmResult{}
	seen := make(map[uint]struct{})

	for _, rng := range geo.CoverRadius(lat, lng, radiusKm) {
		var farms []model.Farm
		err := db.WithContext(ctx).
			Where("geohash <> ''").
			Where("geohash BETWEEN ? AND ?", rng.Lower, rng.Upper).
			Order("geohash").
			Find(&farms).Error
		if err != nil {
			return nil, fmt.Errorf("geohash range scan failed: %w", err)
		}

		for _, farm := range farms {
			if farm.Lat == nil || farm.Lng == nil {
				continue
			}
			if _, ok := seen[farm.ID]; ok {
				continue
			}
			distanceKm := geo.Distance(lat, lng, *farm.Lat, *farm.Lng)
			if distanceKm > radiusKm {
				continue
			}
			seen[farm.ID] = struct{}{}

			products := farm.Products
			if products == nil {
				products = []string{}
			}
			results = append(results, FarmResult{
				ID:         farm.ID,
				Name:       farm.Name,
				Type:       farm.Type,
				Status:     farm.Status,
				Products:   products,
				Lat:        *farm.Lat,
				Lng:        *farm.Lng,
				Distance:   geo.FormatDistance(distanceKm),
				distanceKm: distanceKm,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].distanceKm < results[j].distanceKm
	})
	return results, nil
}
