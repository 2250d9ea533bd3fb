package server

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createCommunity makes a community through the API and returns its id.
func createCommunity(t *testing.T, app *fiber.App, token, name string) string {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/communities", token, fiber.Map{
		"name":        name,
		"description": "a test circle",
	})
	require.Equal(t, http.StatusCreated, status, "response: %v", body)
	community, _ := body["community"].(map[string]any)
	require.NotNil(t, community)
	id, _ := community["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestCreateAndListCommunities(t *testing.T) {
	_, app := newTestServer(t)

	token, userID := signUpUser(t, app, "mira", "mira@example.com")
	id := createCommunity(t, app, token, "chai-lovers")

	status, body := doJSON(t, app, http.MethodGet, "/api/communities", token, nil)
	require.Equal(t, http.StatusOK, status)
	communities := body["communities"].([]any)
	require.Len(t, communities, 1)

	got := communities[0].(map[string]any)
	assert.Equal(t, id, got["id"])
	assert.Equal(t, userID, got["createdBy"])
	assert.Contains(t, got["members"], userID)
	assert.Contains(t, got["admins"], userID)
}

func TestJoinRequestAcceptFlowOverHTTP(t *testing.T) {
	_, app := newTestServer(t)

	owner, _ := signUpUser(t, app, "mira", "mira@example.com")
	member, memberID := signUpUser(t, app, "noah", "noah@example.com")

	id := createCommunity(t, app, owner, "chai-lovers")

	status, _ := doJSON(t, app, http.MethodPost, "/api/communities/"+id+"/requests", member, nil)
	require.Equal(t, http.StatusOK, status)

	// the owner sees the pending request
	status, body := doJSON(t, app, http.MethodGet, "/api/communities", owner, nil)
	require.Equal(t, http.StatusOK, status)
	community := body["communities"].([]any)[0].(map[string]any)
	assert.Contains(t, community["joinRequests"], memberID)

	status, _ = doJSON(t, app, http.MethodPost,
		"/api/communities/"+id+"/requests/"+memberID+"/accept", owner, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/communities", member, nil)
	require.Equal(t, http.StatusOK, status)
	community = body["communities"].([]any)[0].(map[string]any)
	assert.Contains(t, community["members"], memberID)
	assert.NotContains(t, community["joinRequests"], memberID)

	// the accepted member was notified
	status, body = doJSON(t, app, http.MethodGet, "/api/notifications", member, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["notifications"])
}

func TestJoinAndLeaveCommunityOverHTTP(t *testing.T) {
	_, app := newTestServer(t)

	owner, _ := signUpUser(t, app, "mira", "mira@example.com")
	member, memberID := signUpUser(t, app, "noah", "noah@example.com")

	id := createCommunity(t, app, owner, "chai-lovers")

	status, _ := doJSON(t, app, http.MethodPost, "/api/communities/"+id+"/join", member, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, app, http.MethodGet, "/api/communities", member, nil)
	require.Equal(t, http.StatusOK, status)
	community := body["communities"].([]any)[0].(map[string]any)
	assert.Contains(t, community["members"], memberID)

	status, _ = doJSON(t, app, http.MethodPost, "/api/communities/"+id+"/leave", member, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/communities", member, nil)
	require.Equal(t, http.StatusOK, status)
	community = body["communities"].([]any)[0].(map[string]any)
	assert.NotContains(t, community["members"], memberID)
}

func TestCommunityPostsOverHTTP(t *testing.T) {
	_, app := newTestServer(t)

	owner, ownerID := signUpUser(t, app, "mira", "mira@example.com")
	id := createCommunity(t, app, owner, "chai-lovers")

	status, body := doJSON(t, app, http.MethodPost, "/api/communities/"+id+"/posts", owner, fiber.Map{
		"text": "first post",
	})
	require.Equal(t, http.StatusCreated, status, "response: %v", body)
	post := body["post"].(map[string]any)
	assert.Equal(t, ownerID, post["userId"])

	status, body = doJSON(t, app, http.MethodGet, "/api/communities/"+id+"/posts", owner, nil)
	require.Equal(t, http.StatusOK, status)
	posts := body["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, "first post", posts[0].(map[string]any)["text"])
}

func TestNonMemberCannotPostToCommunity(t *testing.T) {
	_, app := newTestServer(t)

	owner, _ := signUpUser(t, app, "mira", "mira@example.com")
	outsider, _ := signUpUser(t, app, "noah", "noah@example.com")

	id := createCommunity(t, app, owner, "chai-lovers")

	status, _ := doJSON(t, app, http.MethodPost, "/api/communities/"+id+"/posts", outsider, fiber.Map{
		"text": "let me in",
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestPromoteAndRemoveMemberOverHTTP(t *testing.T) {
	_, app := newTestServer(t)

	owner, _ := signUpUser(t, app, "mira", "mira@example.com")
	member, memberID := signUpUser(t, app, "noah", "noah@example.com")

	id := createCommunity(t, app, owner, "chai-lovers")

	status, _ := doJSON(t, app, http.MethodPost, "/api/communities/"+id+"/join", member, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost,
		"/api/communities/"+id+"/admins/"+memberID, owner, nil)
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, app, http.MethodGet, "/api/communities", owner, nil)
	require.Equal(t, http.StatusOK, status)
	community := body["communities"].([]any)[0].(map[string]any)
	assert.Contains(t, community["admins"], memberID)

	status, _ = doJSON(t, app, http.MethodDelete,
		"/api/communities/"+id+"/members/"+memberID, owner, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/communities", owner, nil)
	require.Equal(t, http.StatusOK, status)
	community = body["communities"].([]any)[0].(map[string]any)
	assert.NotContains(t, community["members"], memberID)
	assert.NotContains(t, community["admins"], memberID)
}
