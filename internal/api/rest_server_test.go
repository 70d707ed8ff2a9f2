package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-sim/internal/auth"
	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/vec"
	"github.com/annel0/mmo-sim/internal/world"
)

// lShape - два квадрата буквой L, путь между дальними углами огибает угол
func lShape() *content.MapDefinition {
	return &content.MapDefinition{
		Name: "lshape",
		Navmesh: content.NavmeshDef{
			Vertices: []vec.Vec3{
				vec.New(0, 0, 0), vec.New(10, 0, 0), vec.New(10, 0, 10), vec.New(0, 0, 10),
				vec.New(20, 0, 0), vec.New(20, 0, 10),
				vec.New(20, 0, 20), vec.New(10, 0, 20),
			},
			Polygons: [][]int{{0, 1, 2, 3}, {1, 4, 5, 2}, {2, 5, 6, 7}},
		},
		Player: content.PlayerDef{Spawn: vec.New(1, 0, 1), MaxHealth: 100},
	}
}

func newTestServer(t *testing.T, requireAdmin bool) *RestServer {
	t.Helper()
	manager := world.NewManager(world.DefaultOptions())
	_, err := manager.CreateWithID("s1", lShape())
	require.NoError(t, err)

	return NewRestServer(Config{
		Sessions:     manager,
		Registry:     prometheus.NewRegistry(),
		RequireAdmin: requireAdmin,
		Clients:      func() int { return 3 },
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func get(t *testing.T, rs *RestServer, url, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec.Code, env
}

func TestHealth(t *testing.T) {
	rs := newTestServer(t, true)
	code, _ := get(t, rs, "/health", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestSessionsEndpoints(t *testing.T) {
	rs := newTestServer(t, false)

	code, env := get(t, rs, "/api/sessions", "")
	require.Equal(t, http.StatusOK, code)
	var list []world.SessionStats
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "s1", list[0].ID)
	assert.Equal(t, "lshape", list[0].Map)

	code, env = get(t, rs, "/api/sessions/s1", "")
	require.Equal(t, http.StatusOK, code)
	var detail struct {
		Stats   world.SessionStats `json:"stats"`
		Navmesh struct {
			Regions int `json:"regions"`
		} `json:"navmesh"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "s1", detail.Stats.ID)
	assert.Positive(t, detail.Navmesh.Regions)

	code, _ = get(t, rs, "/api/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPathEndpoint(t *testing.T) {
	rs := newTestServer(t, false)

	code, env := get(t, rs, "/api/sessions/s1/path?from=1,0,1&to=15,0,19", "")
	require.Equal(t, http.StatusOK, code)
	var path PathResponse
	require.NoError(t, json.Unmarshal(env.Data, &path))
	require.True(t, path.Found)
	assert.Equal(t, vec.New(1, 0, 1), path.Points[0])
	assert.Equal(t, vec.New(15, 0, 19), path.Points[len(path.Points)-1])
	// Прямая через пустой угол короче, путь обязан его обогнуть
	assert.Greater(t, path.Length, vec.New(1, 0, 1).DistanceTo(vec.New(15, 0, 19)))

	code, env = get(t, rs, "/api/sessions/s1/path?from=1,0,1&to=5,0,15", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &path))
	assert.False(t, path.Found)
	assert.Empty(t, path.Points)

	code, _ = get(t, rs, "/api/sessions/s1/path?from=1,0&to=5,0,5", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestClampEndpoint(t *testing.T) {
	rs := newTestServer(t, false)

	code, env := get(t, rs, "/api/sessions/s1/clamp?from=5,0,5&to=5,0,-5", "")
	require.Equal(t, http.StatusOK, code)
	var clamp ClampResponse
	require.NoError(t, json.Unmarshal(env.Data, &clamp))
	assert.True(t, clamp.Clamped)
	assert.False(t, clamp.Walkable)
	assert.LessOrEqual(t, clamp.Travelled, 10.0+1e-6)

	code, env = get(t, rs, "/api/sessions/s1/clamp?from=5,0,5&to=6,0,6", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &clamp))
	assert.False(t, clamp.Clamped)
	assert.True(t, clamp.Walkable)
}

func TestAdminGuard(t *testing.T) {
	rs := newTestServer(t, true)

	code, _ := get(t, rs, "/api/sessions", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = get(t, rs, "/api/sessions", "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	player, err := auth.GenerateJWT(&auth.User{ID: 1, Username: "p"}, time.Minute)
	require.NoError(t, err)
	code, _ = get(t, rs, "/api/sessions", player)
	assert.Equal(t, http.StatusForbidden, code)

	admin, err := auth.GenerateJWT(&auth.User{ID: 2, Username: "root", IsAdmin: true}, time.Minute)
	require.NoError(t, err)
	code, env := get(t, rs, "/api/server", admin)
	require.Equal(t, http.StatusOK, code)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, float64(3), info["clients"])
	assert.Equal(t, float64(1), info["sessions"])
}

func TestMetricsEndpoint(t *testing.T) {
	rs := newTestServer(t, false)
	get(t, rs, "/health", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	rs.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin_api_http_request_duration_seconds")
}

func TestParsePoint(t *testing.T) {
	p, err := parsePoint("1.5, 2,-3")
	require.NoError(t, err)
	assert.Equal(t, vec.New(1.5, 2, -3), p)

	_, err = parsePoint("")
	assert.Error(t, err)
	_, err = parsePoint("a,b,c")
	assert.Error(t, err)
}
