package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/inkwell/internal/auth"
	"github.com/zfogg/inkwell/internal/handlers"
	"github.com/zfogg/inkwell/internal/models"
	"github.com/zfogg/inkwell/internal/repository"
	"github.com/zfogg/inkwell/internal/teardown"
	"github.com/zfogg/inkwell/internal/vote"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	router *gin.Engine
	tokens *auth.TokenService
}

func newTestServer(t *testing.T, votesPerMinute int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	content := repository.NewContentRepository(db)
	ledger := vote.NewLedger(vote.NewMemorySetStore(), repository.NewCounterRepository(db))
	h := handlers.NewHandlers(ledger, content, teardown.NewService(content, ledger, nil, 0))

	tokens := auth.NewTokenService([]byte("router-test-secret"))
	return &testServer{
		router: NewRouter(Options{
			Handlers:           h,
			Tokens:             tokens,
			RateLimitPerMinute: votesPerMinute,
			ServiceName:        "inkwell-test",
		}),
		tokens: tokens,
	}
}

func (ts *testServer) request(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, _, err := ts.tokens.GenerateToken(userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestRouterVoteRoundTrip(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.request(t, http.MethodPost, "/api/v1/posts", "author", map[string]string{"title": "tidepools"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	base := "/api/v1/posts/" + post.ID
	assert.Equal(t, http.StatusUnauthorized, ts.request(t, http.MethodPost, base+"/like", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.request(t, http.MethodPost, base+"/like", "alice", nil).Code)
	assert.Equal(t, http.StatusConflict, ts.request(t, http.MethodPost, base+"/like", "alice", nil).Code)

	w = ts.request(t, http.MethodGet, base+"/votes", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"kind":"post","id":"`+post.ID+`","status":"like","like_count":1,"dislike_count":0}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouterVoteRateLimitIsPerUser(t *testing.T) {
	ts := newTestServer(t, 2)

	w := ts.request(t, http.MethodPost, "/api/v1/novels", "author", map[string]string{"title": "Salt Road"})
	require.Equal(t, http.StatusCreated, w.Code)
	var novel models.Novel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &novel))
	base := "/api/v1/novels/" + novel.ID

	assert.Equal(t, http.StatusOK, ts.request(t, http.MethodPost, base+"/like", "alice", nil).Code)
	assert.Equal(t, http.StatusOK, ts.request(t, http.MethodPost, base+"/dislike", "alice", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.request(t, http.MethodDelete, base+"/vote", "alice", nil).Code)

	// Another user has a bucket of their own
	assert.Equal(t, http.StatusOK, ts.request(t, http.MethodPost, base+"/like", "bob", nil).Code)
}

func TestRouterDeleteWithoutFileStorage(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.request(t, http.MethodPost, "/api/v1/posts", "author", map[string]string{"title": "fog"})
	var post models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	w = ts.request(t, http.MethodDelete, "/api/v1/posts/"+post.ID, "author", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"vote_keys_cleared":true`)

	// Uploads are disabled without storage
	assert.Equal(t, http.StatusServiceUnavailable, ts.request(t, http.MethodPost, "/api/v1/posts/"+post.ID+"/image", "author", nil).Code)
}

func TestRouterOperationalEndpoints(t *testing.T) {
	ts := newTestServer(t, 100)

	w := ts.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.request(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = ts.request(t, http.MethodGet, "/api/v1/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/posts", nil)
	req.Header.Set("Origin", "https://inkwell.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
