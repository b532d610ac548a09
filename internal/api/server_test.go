package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/clash-synergy/internal/service"
	"github.com/ramonehamilton/clash-synergy/internal/storage/models"
)

func testCards() []*models.Card {
	return []*models.Card{
		{Name: "Knight", Type: "troop", Mobility: "ground", Targets: "ground", AttackType: "single", Rarity: "common", ElixirCost: 3, Hitpoints: 1766, Usage: 0.3},
		{Name: "Giant", Type: "troop", Mobility: "ground", Targets: "buildings", AttackType: "single", Rarity: "rare", ElixirCost: 5, Hitpoints: 4091, Usage: 0.2},
		{Name: "Baby Dragon", Type: "troop", Mobility: "flying", Targets: "both", AttackType: "splash", Rarity: "epic", ElixirCost: 4, Hitpoints: 1152, Usage: 0.25},
		{Name: "Zap", Type: "spell", Targets: "both", AttackType: "splash", Rarity: "common", ElixirCost: 2, Usage: 0.4},
		{Name: "Cannon", Type: "building", Targets: "ground", AttackType: "single", Rarity: "common", ElixirCost: 3, Hitpoints: 824, Usage: 0.1},
	}
}

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *service.Service) {
	t.Helper()

	svc := service.New(service.StaticLoader(testCards()), nil)
	require.NoError(t, svc.Load(context.Background()))

	cfg := DefaultConfig()
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, svc), svc
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","cards":5}`, rec.Body.String())
}

func TestHealth_NotLoaded(t *testing.T) {
	svc := service.New(service.StaticLoader(testCards()), nil)
	s := NewServer(nil, svc)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/cards", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListCards(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/v1/cards", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var cards []models.Card
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &cards))
	require.Len(t, cards, 5)
	assert.Equal(t, "Knight", cards[0].Name)
	assert.Equal(t, "Cannon", cards[4].Name)
}

func TestGetCard(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/v1/cards/Baby%20Dragon", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var card models.Card
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &card))
	assert.Equal(t, "Baby Dragon", card.Name)
	assert.Equal(t, "flying", card.Mobility)

	rec = do(t, s, http.MethodGet, "/api/v1/cards/knight", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "names are case-sensitive")
}

func TestGetSimilar(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/v1/cards/Knight/similar?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var similar []struct {
		Name       string  `json:"name"`
		Similarity float64 `json:"similarity"`
		Rank       int     `json:"rank"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &similar))
	require.Len(t, similar, 2)
	assert.Equal(t, 1, similar[0].Rank)
	assert.GreaterOrEqual(t, similar[0].Similarity, similar[1].Similarity)
	for _, sc := range similar {
		assert.NotEqual(t, "Knight", sc.Name)
	}

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/v1/cards/Knight/similar?limit=zero", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/v1/cards/Nope/similar", "").Code)
}

type recommendPayload struct {
	RequestID       string   `json:"request_id"`
	SelectedCards   []string `json:"selected_cards"`
	Recommendations []struct {
		Name         string  `json:"name"`
		SynergyScore float64 `json:"synergy_score"`
		Explanation  string  `json:"explanation"`
		ElixirCost   float64 `json:"elixirCost"`
		Factors      struct {
			Similarity float64  `json:"similarity"`
			GapBonus   float64  `json:"gap_bonus"`
			Roles      []string `json:"roles"`
		} `json:"factors"`
	} `json:"recommendations"`
}

func TestRecommend(t *testing.T) {
	s, svc := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/v1/recommendations", `{"cards":["Knight","Knight","Unknown"],"top_n":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var payload recommendPayload
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &payload))
	assert.NotEmpty(t, payload.RequestID)
	assert.Equal(t, []string{"Knight"}, payload.SelectedCards)
	require.Len(t, payload.Recommendations, 3)

	for i := 1; i < len(payload.Recommendations); i++ {
		assert.GreaterOrEqual(t, payload.Recommendations[i-1].SynergyScore, payload.Recommendations[i].SynergyScore)
	}
	for _, r := range payload.Recommendations {
		assert.NotEqual(t, "Knight", r.Name)
		assert.NotEmpty(t, r.Explanation)
		assert.NotNil(t, r.Factors.Roles)
	}

	assert.Equal(t, uint64(1), svc.Metrics().GetStats().Requests)
}

func TestRecommend_DefaultTopN(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/v1/recommendations", `{"cards":["Zap"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload recommendPayload
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &payload))
	assert.Len(t, payload.Recommendations, 4, "every other card when fewer than the default exist")
}

func TestRecommend_ValidationErrors(t *testing.T) {
	s, _ := newTestServer(t, func(c *Config) { c.Limits.MaxSelected = 3 })

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty selection", `{"cards":[]}`, "no cards selected"},
		{"missing cards", `{"top_n":5}`, "no cards selected"},
		{"no valid cards", `{"cards":["Nope","Also Nope"]}`, "no valid cards found"},
		{"malformed json", `{"cards":`, "invalid request body"},
		{"negative top_n", `{"cards":["Knight"],"top_n":-1}`, "top_n must be greater than or equal to 0"},
		{"too many cards", `{"cards":["a","b","c","d"]}`, "at most 3 cards"},
		{"name too long", fmt.Sprintf(`{"cards":[%q]}`, strings.Repeat("x", 65)), "cards[0] must be at most 64"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/recommendations", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			env := decode(t, rec)
			assert.Equal(t, http.StatusBadRequest, env.Code)
			assert.Contains(t, env.Message, tt.message)
		})
	}
}

func TestRecommend_ContentType(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(`{"cards":["Knight"]}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRecommend_EmptyBody(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", http.NoBody)
	require.EqualValues(t, -1, req.ContentLength)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body is required", decode(t, rec).Message)
}

func TestRecommend_UnknownLengthWithoutContentType(t *testing.T) {
	s, _ := newTestServer(t, nil)

	body := io.NopCloser(strings.NewReader(`{"cards":["Knight"]}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", body)
	require.EqualValues(t, -1, req.ContentLength)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestExplain(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/v1/recommendations/explain", `{"cards":["Knight"],"card":"Baby Dragon"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got struct {
		Name        string `json:"name"`
		Explanation string `json:"explanation"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Equal(t, "Baby Dragon", got.Name)
	assert.Contains(t, got.Explanation, "covers air defense")

	rec = do(t, s, http.MethodPost, "/api/v1/recommendations/explain", `{"cards":["Knight"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Message, "card is required")

	rec = do(t, s, http.MethodPost, "/api/v1/recommendations/explain", `{"cards":["Knight"],"card":"Nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSystemStats(t *testing.T) {
	s, _ := newTestServer(t, func(c *Config) { c.Version = "1.2.3" })
	do(t, s, http.MethodPost, "/api/v1/recommendations", `{"cards":["Knight"]}`)

	rec := do(t, s, http.MethodGet, "/api/v1/system/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Version  string   `json:"version"`
		Cards    int      `json:"cards"`
		Features int      `json:"features"`
		Columns  []string `json:"columns"`
		Metrics  struct {
			Requests uint64 `json:"requests"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &stats))
	assert.Equal(t, "1.2.3", stats.Version)
	assert.Equal(t, 5, stats.Cards)
	assert.Equal(t, len(stats.Columns), stats.Features)
	assert.Equal(t, uint64(1), stats.Metrics.Requests)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, http.MethodPost, "/api/v1/recommendations", `{"cards":["Knight"]}`)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `synergy_requests_total{operation="recommend",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "synergy_catalog_cards 5")
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *Config) {
		c.RateLimit = 0.001
		c.RateBurst = 1
	})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/v1/cards", "").Code)

	rec := do(t, s, http.MethodGet, "/api/v1/cards", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Operational endpoints are not limited.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)

	// Other clients keep their own bucket.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cards", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	s.Handler().ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestIPLimiter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newIPLimiter(1, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("192.0.2.1"))
	assert.False(t, l.allow("192.0.2.1"))
	assert.True(t, l.allow("192.0.2.2"))
	assert.Equal(t, 2, l.size())

	now = now.Add(time.Second)
	assert.True(t, l.allow("192.0.2.1"), "bucket refills")

	now = now.Add(l.ttl + time.Minute)
	assert.True(t, l.allow("192.0.2.3"))
	assert.Equal(t, 1, l.size(), "idle clients are swept")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", clientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientIP(req))
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/recommendations", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:*", "https://app.example.com"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"HTTP://LOCALHOST:5173", true},
		{"https://app.example.com", true},
		{"https://evil.example.com", false},
		{"http://127.0.0.1:3000", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, check(req), tt.origin)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	s, _ := newTestServer(t, func(c *Config) { c.Port = 0 })
	assert.Nil(t, s.Addr())

	require.NoError(t, s.Start())
	require.NotNil(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.True(t, s.WebSocketHub().IsStopped())
}
