package rest_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/platemate/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// signupAdmin creates a user, grants the admin group, and logs in.
func signupAdmin(t *testing.T, s *testServer) (model.User, string) {
	t.Helper()
	admin := s.signup(t, "admin@example.com", "password123", "Ada", "Admin")
	admin.Groups = datatypes.JSON([]byte(`["admin"]`))
	require.NoError(t, s.db.Save(&admin).Error)
	token := s.login(t, "admin@example.com", "password123")
	return admin, token
}

func TestAdmin_RequiresAdminGroup(t *testing.T) {
	s := newTestServer(t)
	_, token := s.signupAndLogin(t, "pleb@example.com", "Pleb", "User")

	w := s.authed(t, http.MethodGet, "/api/admin/users", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdmin_ListUsers(t *testing.T) {
	s := newTestServer(t)
	_, token := signupAdmin(t, s)
	s.signup(t, "u1@example.com", "password123", "User", "One")
	s.signup(t, "u2@example.com", "password123", "User", "Two")

	w := s.authed(t, http.MethodGet, "/api/admin/users", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Users []model.User `json:"users"`
		Count int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
}

func TestAdmin_DeleteUser(t *testing.T) {
	s := newTestServer(t)
	_, token := signupAdmin(t, s)
	doomed := s.signup(t, "doomed@example.com", "password123", "Doomed", "User")

	w := s.authed(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", doomed.ID), nil, token)
	require.Equal(t, http.StatusAccepted, w.Code)

	// The pipeline consumer purges asynchronously.
	require.Eventually(t, func() bool {
		var count int64
		s.db.Model(&model.User{}).Where("id = ?", doomed.ID).Count(&count)
		return count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAdmin_DeleteUser_NotFound(t *testing.T) {
	s := newTestServer(t)
	_, token := signupAdmin(t, s)

	w := s.authed(t, http.MethodDelete, "/api/admin/users/9999", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_DeleteRating(t *testing.T) {
	s := newTestServer(t)
	_, adminTok := signupAdmin(t, s)
	_, userTok := s.signupAndLogin(t, "rater@example.com", "Rita", "Rater")
	id := createRatingViaAPI(t, s, userTok, "g-1", 3, 3, 3)

	w := s.authed(t, http.MethodDelete, fmt.Sprintf("/api/admin/ratings/%d", id), nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.authed(t, http.MethodDelete, fmt.Sprintf("/api/admin/ratings/%d", id), nil, adminTok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_ListSchedulerTasks(t *testing.T) {
	s := newTestServer(t)
	_, token := signupAdmin(t, s)

	w := s.authed(t, http.MethodGet, "/api/admin/scheduler", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	_, ok := resp["tasks"]
	assert.True(t, ok)
}
