package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/platemate/server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchStatusFor runs a user search and returns the friend_status tag the
// caller sees for the given user id, failing if the id is absent.
func searchStatusFor(t *testing.T, ts *TestServer, token, term string, userID int64) string {
	t.Helper()
	resp := ts.Get(t, "/api/users/search?term="+term, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	for _, raw := range result["user_data"].([]interface{}) {
		entry := raw.(map[string]interface{})
		if int64(entry["id"].(float64)) == userID {
			return entry["friend_status"].(string)
		}
	}
	t.Fatalf("user %d not in search results for term %q", userID, term)
	return ""
}

func friendCount(t *testing.T, ts *TestServer, token string) int {
	t.Helper()
	resp := ts.Get(t, "/api/friends", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return len(result["friends"].([]interface{}))
}

func TestSocialLifecycle(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	alice, tokenA := ts.SignupAndLogin(t, UniqueEmail("alice"), "Alice", "Archer")
	bob, tokenB := ts.SignupAndLogin(t, UniqueEmail("bob"), "Bob", "Baker")

	// Strangers at first.
	assert.Equal(t, "Not friends", searchStatusFor(t, ts, tokenA, "Bob+Baker", bob.ID))

	// Alice sends a friend request to Bob.
	resp := ts.PostJSON(t, "/api/friends/request", map[string]int64{"user_id": bob.ID}, tokenA)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Pending on both sides, in the right direction.
	resp = ts.Get(t, "/api/friends/pending?direction=outbound", tokenA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pending map[string]interface{}
	ReadJSON(t, resp, &pending)
	out := pending["pending"].([]interface{})
	require.Len(t, out, 1)
	assert.Equal(t, bob.Handle, out[0].(map[string]interface{})["handle"])

	resp = ts.Get(t, "/api/friends/pending?direction=inbound", tokenB)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ReadJSON(t, resp, &pending)
	in := pending["pending"].([]interface{})
	require.Len(t, in, 1)
	assert.Equal(t, alice.Handle, in[0].(map[string]interface{})["handle"])

	// Not yet friends, and search reflects the pending state.
	assert.Equal(t, 0, friendCount(t, ts, tokenA))
	assert.Equal(t, "Pending", searchStatusFor(t, ts, tokenA, "Bob+Baker", bob.ID))

	// Bob accepts.
	resp = ts.PostJSON(t, "/api/friends/accept", map[string]int64{"user_id": alice.ID}, tokenB)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 1, friendCount(t, ts, tokenA))
	assert.Equal(t, 1, friendCount(t, ts, tokenB))
	assert.Equal(t, "Friends", searchStatusFor(t, ts, tokenA, "Bob+Baker", bob.ID))

	// Bob rates a place; the place is resolved through the Places client.
	msg := "great pasta"
	resp = ts.PostJSON(t, "/api/ratings", map[string]interface{}{
		"google_id": "gp-bistro", "food": 5, "price": 4, "vibe": 3, "message": msg,
	}, tokenB)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var place model.Place
	require.NoError(t, ts.DB.Where("google_id = ?", "gp-bistro").First(&place).Error)
	assert.Equal(t, "Diner gp-bistro", place.DisplayName)

	// Alice sees Bob's rating because they are friends.
	resp = ts.Get(t, fmt.Sprintf("/api/places/%d/ratings", place.ID), tokenA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view map[string]interface{}
	ReadJSON(t, resp, &view)
	rows := view["ratings"].([]interface{})
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, float64(5), row["food"])
	assert.Equal(t, "Diner gp-bistro", row["place_name"])
	assert.Equal(t, float64(bob.ID), row["user_id"])

	// Alice ends the friendship; Bob's rating disappears from her view.
	resp = ts.Delete(t, fmt.Sprintf("/api/friends/%d", bob.ID), tokenA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 0, friendCount(t, ts, tokenA))
	assert.Equal(t, 0, friendCount(t, ts, tokenB))

	resp = ts.Get(t, fmt.Sprintf("/api/places/%d/ratings", place.ID), tokenA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ReadJSON(t, resp, &view)
	assert.Empty(t, view["ratings"].([]interface{}))
}

func TestPlacesProxy(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	_, token := ts.SignupAndLogin(t, UniqueEmail("carol"), "Carol", "Cook")

	resp := ts.Get(t, "/api/places/lookup/gp-42", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var details map[string]interface{}
	ReadJSON(t, resp, &details)
	assert.Equal(t, "Diner gp-42", details["display_name"])
	assert.Equal(t, "gp-42 High Street", details["address"])

	resp = ts.Get(t, "/api/places/search?text=sushi", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found map[string]interface{}
	ReadJSON(t, resp, &found)
	candidates := found["places"].([]interface{})
	require.Len(t, candidates, 1)
	assert.Equal(t, "found-sushi", candidates[0].(map[string]interface{})["google_id"])

	resp = ts.Get(t, "/api/places/search?text=nowhere", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ReadJSON(t, resp, &found)
	assert.Empty(t, found["places"].([]interface{}))
}

func TestHealth(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	resp := ts.Get(t, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
