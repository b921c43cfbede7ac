package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	mid "plaasstop-backend/internal/middleware"
	"plaasstop-backend/internal/model"
	"plaasstop-backend/internal/service"
	"plaasstop-backend/pkg/config"
	"plaasstop-backend/pkg/database"
	"plaasstop-backend/pkg/jwtutil"
	"plaasstop-backend/prometheus"
)

// Pretoria city centre.
const (
	centerLat = -25.7479
	centerLng = 28.2293
)

var metricsOnce sync.Once

// initMetrics registers the prometheus collectors once for the whole
// package; re-registering panics.
func initMetrics() {
	metricsOnce.Do(func() {
		prometheus.InitMetrics(&config.Config{
			Metrics: config.MetricsConfig{Prefix: "handlertest"},
		})
	})
}

func newTestServer(t *testing.T) (*echo.Echo, *gorm.DB, *jwtutil.JWTUtil) {
	t.Helper()
	initMetrics()

	db, err := database.InitTestDB()
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Farm{}))

	jwtUtil := jwtutil.NewJWTUtil(&config.JWTConfig{
		SigningKey:     "handler-test-key",
		ExpirationTime: time.Hour,
	})

	userService := service.NewUserService(db)
	farmService := service.NewFarmService(db, &config.GeoConfig{
		Backend:         config.GeoBackendGeohash,
		DefaultRadiusKm: 50,
	})

	healthHandler := NewHealthHandler(db)
	authHandler := NewAuthHandler(userService)
	farmHandler := NewFarmHandler(farmService)

	e := echo.New()
	e.Use(mid.RequestIDMiddleware)

	e.GET("/health/live", healthHandler.Live)
	e.GET("/health/ready", healthHandler.Ready)

	authAPI := e.Group("/api/auth", mid.AuthMiddleware(jwtUtil))
	authAPI.POST("/sync", authHandler.Sync)
	authAPI.GET("/me", authHandler.Me)

	e.POST("/api/farms/search", farmHandler.Search)
	e.POST("/api/farms/:id/claim", farmHandler.Claim, mid.AuthMiddleware(jwtUtil))

	return e, db, jwtUtil
}

func doRequest(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func bearerToken(t *testing.T, jwtUtil *jwtutil.JWTUtil, userID, email string) string {
	t.Helper()
	token, err := jwtUtil.GenerateToken(userID, email)
	require.NoError(t, err)
	return token
}

func TestHealthEndpoints(t *testing.T) {
	e, _, _ := newTestServer(t)

	t.Run("Live", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/health/live", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "up", body["status"])
		assert.Contains(t, body, "uptime")
	})

	t.Run("Ready", func(t *testing.T) {
		rec := doRequest(e, http.MethodGet, "/health/ready", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, "connected", body["database"])
	})
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("MissingCoordinates", func(t *testing.T) {
		e, _, _ := newTestServer(t)
		rec := doRequest(e, http.MethodPost, "/api/farms/search", `{"lng": 28.2293}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing coordinates", decodeBody(t, rec)["error"])
	})

	t.Run("MalformedBody", func(t *testing.T) {
		e, _, _ := newTestServer(t)
		rec := doRequest(e, http.MethodPost, "/api/farms/search", `{"lat": "not-a-number"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ReturnsNearbyFarmsWithDistance", func(t *testing.T) {
		e, db, _ := newTestServer(t)

		lat, lng := centerLat+0.0306, centerLng
		farLat := centerLat + 1.08
		require.NoError(t, db.Create(&model.Farm{
			Name: "Near Farm", Type: model.FarmTypeLead, Status: model.FarmStatusUnclaimed,
			Products: []string{"eggs", "milk"}, Lat: &lat, Lng: &lng,
		}).Error)
		require.NoError(t, db.Create(&model.Farm{
			Name: "Far Farm", Type: model.FarmTypeLead, Status: model.FarmStatusUnclaimed,
			Lat: &farLat, Lng: &lng,
		}).Error)

		body := fmt.Sprintf(`{"lat": %f, "lng": %f, "radiusInKm": 50}`, centerLat, centerLng)
		rec := doRequest(e, http.MethodPost, "/api/farms/search", body, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var results []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
		require.Len(t, results, 1)
		assert.Equal(t, "Near Farm", results[0]["name"])
		assert.Equal(t, "3.4 km", results[0]["distance"])
		assert.Equal(t, []interface{}{"eggs", "milk"}, results[0]["products"])
	})

	t.Run("NoAuthRequired", func(t *testing.T) {
		e, _, _ := newTestServer(t)
		body := fmt.Sprintf(`{"lat": %f, "lng": %f}`, centerLat, centerLng)
		rec := doRequest(e, http.MethodPost, "/api/farms/search", body, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSyncEndpoint(t *testing.T) {
	t.Run("RequiresToken", func(t *testing.T) {
		e, _, _ := newTestServer(t)
		rec := doRequest(e, http.MethodPost, "/api/auth/sync", `{"role":"buyer"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RejectsGarbageToken", func(t *testing.T) {
		e, _, _ := newTestServer(t)
		rec := doRequest(e, http.MethodPost, "/api/auth/sync", `{"role":"buyer"}`, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("RejectsInvalidRole", func(t *testing.T) {
		e, _, jwtUtil := newTestServer(t)
		token := bearerToken(t, jwtUtil, "U1", "jan@x.com")
		rec := doRequest(e, http.MethodPost, "/api/auth/sync", `{"role":"admin","name":"Jan"}`, token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid role", decodeBody(t, rec)["error"])
	})

	t.Run("SyncsVendorWithFarm", func(t *testing.T) {
		e, db, jwtUtil := newTestServer(t)
		token := bearerToken(t, jwtUtil, "U1", "jan@x.com")

		rec := doRequest(e, http.MethodPost, "/api/auth/sync",
			`{"role":"vendor","name":"Jan","farmName":"Sunny Farm"}`, token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "User profile synced", decodeBody(t, rec)["message"])

		var user model.User
		require.NoError(t, db.First(&user, "id = ?", "U1").Error)
		assert.Equal(t, "jan@x.com", user.Email)

		var count int64
		db.Model(&model.Farm{}).Where("owner_id = ?", "U1").Count(&count)
		assert.EqualValues(t, 1, count)
	})
}

func TestMeEndpoint(t *testing.T) {
	t.Run("NotFoundBeforeSync", func(t *testing.T) {
		e, _, jwtUtil := newTestServer(t)
		token := bearerToken(t, jwtUtil, "U1", "jan@x.com")
		rec := doRequest(e, http.MethodGet, "/api/auth/me", "", token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("BuyerProfileHasNullFarm", func(t *testing.T) {
		e, _, jwtUtil := newTestServer(t)
		token := bearerToken(t, jwtUtil, "U1", "jan@x.com")

		rec := doRequest(e, http.MethodPost, "/api/auth/sync", `{"role":"buyer","name":"Jan"}`, token)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(e, http.MethodGet, "/api/auth/me", "", token)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "U1", body["id"])
		assert.Equal(t, "buyer", body["role"])
		assert.Nil(t, body["farm"])
	})

	t.Run("VendorProfileIncludesFarm", func(t *testing.T) {
		e, _, jwtUtil := newTestServer(t)
		token := bearerToken(t, jwtUtil, "U1", "jan@x.com")

		rec := doRequest(e, http.MethodPost, "/api/auth/sync",
			`{"role":"vendor","name":"Jan","farmName":"Sunny Farm"}`, token)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(e, http.MethodGet, "/api/auth/me", "", token)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "vendor", body["role"])
		farm, ok := body["farm"].(map[string]interface{})
		require.True(t, ok, "expected farm object, got %v", body["farm"])
		assert.Equal(t, "Sunny Farm", farm["name"])
		assert.Equal(t, "pending", farm["status"])
	})
}

func TestClaimEndpoint(t *testing.T) {
	seedLead := func(t *testing.T, db *gorm.DB) model.Farm {
		lat, lng := centerLat, centerLng
		farm := model.Farm{
			Name: "Sunny Farm", Type: model.FarmTypeLead, Status: model.FarmStatusUnclaimed,
			Lat: &lat, Lng: &lng,
		}
		require.NoError(t, db.Create(&farm).Error)
		return farm
	}

	syncUser := func(t *testing.T, e *echo.Echo, token string) {
		rec := doRequest(e, http.MethodPost, "/api/auth/sync", `{"role":"buyer","name":"Jan"}`, token)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	t.Run("RequiresToken", func(t *testing.T) {
		e, db, _ := newTestServer(t)
		farm := seedLead(t, db)
		rec := doRequest(e, http.MethodPost, fmt.Sprintf("/api/farms/%d/claim", farm.ID), "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ClaimsLeadFarm", func(t *testing.T) {
		e, db, jwtUtil := newTestServer(t)
		farm := seedLead(t, db)
		token := bearerToken(t, jwtUtil, "U2", "piet@x.com")
		syncUser(t, e, token)

		rec := doRequest(e, http.MethodPost, fmt.Sprintf("/api/farms/%d/claim", farm.ID), "", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Farm claimed successfully!", decodeBody(t, rec)["message"])

		var claimed model.Farm
		require.NoError(t, db.First(&claimed, farm.ID).Error)
		assert.Equal(t, model.FarmTypeVendor, claimed.Type)
	})

	t.Run("SecondClaimRejected", func(t *testing.T) {
		e, db, jwtUtil := newTestServer(t)
		farm := seedLead(t, db)

		winner := bearerToken(t, jwtUtil, "U2", "piet@x.com")
		loser := bearerToken(t, jwtUtil, "U3", "sannie@x.com")
		syncUser(t, e, winner)
		syncUser(t, e, loser)

		rec := doRequest(e, http.MethodPost, fmt.Sprintf("/api/farms/%d/claim", farm.ID), "", winner)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(e, http.MethodPost, fmt.Sprintf("/api/farms/%d/claim", farm.ID), "", loser)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Farm already claimed", decodeBody(t, rec)["error"])
	})

	t.Run("MissingFarm", func(t *testing.T) {
		e, _, jwtUtil := newTestServer(t)
		token := bearerToken(t, jwtUtil, "U2", "piet@x.com")
		syncUser(t, e, token)

		rec := doRequest(e, http.MethodPost, "/api/farms/999/claim", "", token)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Farm not found", decodeBody(t, rec)["error"])
	})
}
