package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/platemate/server/api/rest"
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
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakePlaces resolves any id without touching the network.
type fakePlaces struct{}

func (fakePlaces) Details(_ context.Context, id string) (*places.Details, error) {
	return &places.Details{GoogleID: id, DisplayName: "Place " + id, Address: id + " Road"}, nil
}

func (fakePlaces) Search(_ context.Context, text string) ([]places.Details, error) {
	return []places.Details{{GoogleID: "found-" + text, DisplayName: text, Address: "1 " + text}}, nil
}

// testServer wires the full REST surface against an in-memory database,
// the same shape main assembles in production.
type testServer struct {
	router   *gin.Engine
	db       *gorm.DB
	cache    cache.Cache
	pubsub   cache.PubSub
	friends  *friends.Service
	ratings  *ratings.Service
	audit    *audit.Service
	consumer *pipeline.Consumer
	sec      config.SecurityConfig
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()
	sec := config.SecurityConfig{JWTSecret: "test-secret", JWTTTLH: 72 * time.Hour}

	fr := friends.NewService(db, logger)
	rt := ratings.NewService(db, fr, fakePlaces{}, logger)
	aud := audit.New(db, logger)
	t.Cleanup(func() { aud.Stop(context.Background()) })
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	consumer := pipeline.NewConsumer(db, ps, fr, rt, logger)
	require.NoError(t, consumer.Start(context.Background()))
	t.Cleanup(consumer.Stop)

	authH := rest.NewAuthHandler(db, c, sec)
	friendsH := rest.NewFriendsHandler(db, fr, aud)
	usersH := rest.NewUsersHandler(fr)
	ratingsH := rest.NewRatingsHandler(rt, aud)
	placesH := rest.NewPlacesHandler(fakePlaces{})
	adminH := rest.NewAdminHandler(db, ps, rt, sched, aud, logger)

	r := gin.New()
	r.Use(mw.TraceID())

	api := r.Group("/api")
	api.POST("/auth/signup", authH.Signup)
	api.POST("/auth/login", authH.Login)

	authed := api.Group("")
	authed.Use(mw.Auth(sec, c, db))
	authed.POST("/auth/logout", authH.Logout)
	authed.POST("/auth/refresh", authH.Refresh)
	authed.GET("/users/me", usersH.Me)
	authed.GET("/users/search", usersH.Search)
	authed.POST("/friends/request", friendsH.Request)
	authed.POST("/friends/accept", friendsH.Accept)
	authed.DELETE("/friends/:id", friendsH.Delete)
	authed.GET("/friends", friendsH.List)
	authed.GET("/friends/pending", friendsH.Pending)
	authed.GET("/ratings", ratingsH.List)
	authed.POST("/ratings", ratingsH.Create)
	authed.PUT("/ratings", ratingsH.Update)
	authed.GET("/places/:id/ratings", ratingsH.ForPlaceAndFriends)
	authed.GET("/places/lookup/:google_id", placesH.Details)
	authed.GET("/places/search", placesH.Search)

	admin := authed.Group("/admin")
	admin.Use(mw.RequireAdmin())
	admin.GET("/users", adminH.ListUsers)
	admin.DELETE("/users/:id", adminH.DeleteUser)
	admin.DELETE("/ratings/:id", adminH.DeleteRating)
	admin.GET("/scheduler", adminH.ListSchedulerTasks)

	return &testServer{
		router:   r,
		db:       db,
		cache:    c,
		pubsub:   ps,
		friends:  fr,
		ratings:  rt,
		audit:    aud,
		consumer: consumer,
		sec:      sec,
	}
}

// signup creates a user through the API and returns the stored row.
func (s *testServer) signup(t *testing.T, email, password, first, last string) model.User {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email": email, "password": password, "first_name": first, "last_name": last,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var user model.User
	require.NoError(t, s.db.Where("email = ?", email).First(&user).Error)
	return user
}

// login returns a bearer token for the user.
func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["token"].(string)
}

// signupAndLogin is the common fixture path.
func (s *testServer) signupAndLogin(t *testing.T, email, first, last string) (model.User, string) {
	t.Helper()
	user := s.signup(t, email, "password123", first, last)
	token := s.login(t, email, "password123")
	return user, token
}

// do issues a JSON request; pass "Header", "value" pairs after the body.
func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) authed(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	return s.do(t, method, path, body, "Authorization", "Bearer "+token)
}
