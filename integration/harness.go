package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/platemate/server/api/rest"
	"github.com/platemate/server/audit"
	"github.com/platemate/server/cache"
	"github.com/platemate/server/config"
	"github.com/platemate/server/friends"
	mw "github.com/platemate/server/middleware"
	"github.com/platemate/server/model"
	"github.com/platemate/server/pipeline"
	"github.com/platemate/server/places"
	"github.com/platemate/server/ratings"
	"github.com/platemate/server/scheduler"
	"github.com/platemate/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestServer wraps a real HTTP server with every subsystem wired together.
type TestServer struct {
	DB        *gorm.DB
	Cache     cache.Cache
	PubSub    cache.PubSub
	Friends   *friends.Service
	Ratings   *ratings.Service
	Audit     *audit.Service
	Sched     *scheduler.Scheduler
	Server    *httptest.Server
	PlacesAPI *httptest.Server // fake Google Places web service
	URL       string
	Sec       config.SecurityConfig

	consumer *pipeline.Consumer
}

// newFakePlacesAPI serves the two Places endpoints with deterministic data
// derived from the query, so place resolution works for any id.
func newFakePlacesAPI() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/details/json", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("place_id")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "OK",
			"result": map[string]interface{}{
				"place_id":          id,
				"name":              "Diner " + id,
				"formatted_address": id + " High Street",
				"geometry": map[string]interface{}{
					"location": map[string]float64{"lat": 51.5, "lng": -0.1},
				},
			},
		})
	})
	mux.HandleFunc("/findplacefromtext/json", func(w http.ResponseWriter, r *http.Request) {
		input := r.URL.Query().Get("input")
		if input == "nowhere" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "ZERO_RESULTS", "candidates": []interface{}{},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "OK",
			"candidates": []interface{}{
				map[string]interface{}{
					"place_id":          "found-" + input,
					"name":              input,
					"formatted_address": "1 " + input + " Road",
					"geometry": map[string]interface{}{
						"location": map[string]float64{"lat": 40.7, "lng": -74.0},
					},
				},
			},
		})
	})
	return httptest.NewServer(mux)
}

// NewTestServer creates a fully wired backend for integration testing.
// It mirrors the dependency wiring in main.go, with the Places client
// pointed at a local fake instead of Google.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}

	placesAPI := newFakePlacesAPI()
	placesClient := places.NewGoogleClient(config.PlacesConfig{
		APIKey:  "test-key",
		BaseURL: placesAPI.URL,
		Timeout: 5 * time.Second,
	})

	// ---- Services ----
	friendsSvc := friends.NewService(db, logger)
	ratingsSvc := ratings.NewService(db, friendsSvc, placesClient, logger)
	auditSvc := audit.New(db, logger)
	sched := scheduler.New(logger)

	consumer := pipeline.NewConsumer(db, pubsub, friendsSvc, ratingsSvc, logger)
	require.NoError(t, consumer.Start(context.Background()))

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes (mirrors main.go) ----
	authH := apirest.NewAuthHandler(db, c, sec)
	friendsH := apirest.NewFriendsHandler(db, friendsSvc, auditSvc)
	usersH := apirest.NewUsersHandler(friendsSvc)
	ratingsH := apirest.NewRatingsHandler(ratingsSvc, auditSvc)
	placesH := apirest.NewPlacesHandler(placesClient)
	adminH := apirest.NewAdminHandler(db, pubsub, ratingsSvc, sched, auditSvc, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/signup", authH.Signup)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(sec, c, db), authH.Logout)
		authG.POST("/refresh", mw.Auth(sec, c, db), authH.Refresh)

		usersG := api.Group("/users")
		usersG.Use(mw.Auth(sec, c, db))
		usersG.GET("/me", usersH.Me)
		usersG.GET("/search", usersH.Search)

		friendsG := api.Group("/friends")
		friendsG.Use(mw.Auth(sec, c, db))
		friendsG.GET("", friendsH.List)
		friendsG.GET("/pending", friendsH.Pending)
		friendsG.POST("/request", friendsH.Request)
		friendsG.POST("/accept", friendsH.Accept)
		friendsG.DELETE("/:id", friendsH.Delete)

		ratingsG := api.Group("/ratings")
		ratingsG.Use(mw.Auth(sec, c, db))
		ratingsG.GET("", ratingsH.List)
		ratingsG.POST("", ratingsH.Create)
		ratingsG.PUT("", ratingsH.Update)

		placesG := api.Group("/places")
		placesG.Use(mw.Auth(sec, c, db))
		placesG.GET("/:id/ratings", ratingsH.ForPlaceAndFriends)
		placesG.GET("/lookup/:google_id", placesH.Details)
		placesG.GET("/search", placesH.Search)

		adminG := api.Group("/admin")
		adminG.Use(mw.Auth(sec, c, db), mw.RequireAdmin())
		adminG.GET("/users", adminH.ListUsers)
		adminG.DELETE("/users/:id", adminH.DeleteUser)
		adminG.DELETE("/ratings/:id", adminH.DeleteRating)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	server := httptest.NewServer(r)

	return &TestServer{
		DB:        db,
		Cache:     c,
		PubSub:    pubsub,
		Friends:   friendsSvc,
		Ratings:   ratingsSvc,
		Audit:     auditSvc,
		Sched:     sched,
		Server:    server,
		PlacesAPI: placesAPI,
		URL:       server.URL,
		Sec:       sec,
		consumer:  consumer,
	}
}

// Close shuts down the test server and all background workers.
func (ts *TestServer) Close() {
	ts.consumer.Stop()
	ts.Sched.Stop()
	ts.Audit.Stop(context.Background())
	ts.Server.Close()
	ts.PlacesAPI.Close()
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest("POST", ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Put sends a PUT request with JSON body and optional Bearer token.
func (ts *TestServer) Put(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest("PUT", ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Delete sends a DELETE request with optional Bearer token.
func (ts *TestServer) Delete(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("DELETE", ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Account helpers ---

// Signup registers a user through the API and returns the stored row.
func (ts *TestServer) Signup(t *testing.T, email, first, last string) model.User {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/signup", map[string]string{
		"email": email, "password": "password123", "first_name": first, "last_name": last,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var user model.User
	require.NoError(t, ts.DB.Where("email = ?", email).First(&user).Error)
	return user
}

// Login returns a bearer token for the user.
func (ts *TestServer) Login(t *testing.T, email string) string {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/login", map[string]string{
		"email": email, "password": "password123",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return result["token"].(string)
}

// SignupAndLogin is the common fixture path.
func (ts *TestServer) SignupAndLogin(t *testing.T, email, first, last string) (model.User, string) {
	t.Helper()
	user := ts.Signup(t, email, first, last)
	return user, ts.Login(t, email)
}

// PromoteAdmin grants the admin role directly in the database.
func (ts *TestServer) PromoteAdmin(t *testing.T, user *model.User) {
	t.Helper()
	user.Groups = datatypes.JSON(`["admin"]`)
	require.NoError(t, ts.DB.Save(user).Error)
}

// UniqueEmail returns a unique email suitable for signups.
var testCounter uint64

func UniqueEmail(prefix string) string {
	n := atomic.AddUint64(&testCounter, 1)
	return fmt.Sprintf("%s_%d_%d@example.com", prefix, time.Now().UnixNano()%100000, n)
}
