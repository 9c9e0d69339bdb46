// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"rummage/config"
	"rummage/db/kvdb"
	"rummage/db/searchdb"
	"rummage/logger"
	"rummage/validation"
)

const testResultLimit = 20

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

var testFiles = map[string]string{
	"notes/lerp.md":     "lerp performs linear interpolation between two values",
	"shaders/lerp.glsl": "float lerp(float a, float b, float t) { return a + t * (b - a); }",
	"docs/readme.txt":   "general project documentation with nothing special",
	"web/demo.html":     "<html><body><p>search engine demo page</p></body></html>",
	"data/blob.bin":     "\x00\x01\x02 binary payload that must not be indexed",
}

type testCase struct {
	name           string
	requestHeaders map[string]string
	requestBody    map[string]any
	queryParams    map[string]string
	expectedStatus int
}

type testServer struct {
	router   *gin.Engine
	searchDB *searchdb.TFIDFIndex
	kvDB     *kvdb.BoltDB
	filesDir string
}

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func setupTestServer(t *testing.T, assert *require.Assertions) *testServer {
	t.Helper()

	storageDir := t.TempDir()
	filesDir := t.TempDir()

	t.Setenv("ENV", "test")
	t.Setenv("STORAGE_PATH", storageDir)
	t.Setenv("INDEX_PATH", "index.json")
	t.Setenv("KVDB_PATH", filepath.Join(storageDir, "metadata.db"))

	cfg, err := config.Load()
	assert.NoError(err, "could not load config")

	for relPath, content := range testFiles {
		fullPath := filepath.Join(filesDir, relPath)
		err := os.MkdirAll(filepath.Dir(fullPath), 0755)
		assert.NoError(err, "could not create test sub-directory")
		err = os.WriteFile(fullPath, []byte(content), 0644)
		assert.NoError(err, "could not write test file")
	}

	testLogger := newTestLogger()

	searchDB, err := searchdb.New(testLogger, cfg)
	assert.NoError(err, "could not create search index")

	kvDB, err := kvdb.New(testLogger, cfg)
	assert.NoError(err, "could not create kv database")

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	gin.SetMode(gin.TestMode)
	router := gin.New()

	ctx, cancel := context.WithCancel(context.Background())
	SetupIndex(ctx, router, testLogger, searchDB, kvDB, validator)
	SetupSearch(router, testLogger, searchDB, validator, testResultLimit)

	t.Cleanup(func() {
		cancel()
		searchDB.Close()
		kvDB.Close()
	})

	return &testServer{
		router:   router,
		searchDB: searchDB,
		kvDB:     kvDB,
		filesDir: filesDir,
	}
}

func makeTestHTTPRequest(server *testServer, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]any, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?"
		for key, value := range queryParams {
			if endpoint[len(endpoint)-1] != '?' {
				endpoint = endpoint + "&"
			}
			endpoint = endpoint + key + "=" + value
		}
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	server.router.ServeHTTP(w, req)

	return w
}

func makeRankedSearchRequest(server *testServer, assert *require.Assertions, query string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodPost, "/api/search", strings.NewReader(query))
	assert.NoError(err)
	req.Header.Set("Content-Type", "text/plain")

	server.router.ServeHTTP(w, req)
	return w
}
