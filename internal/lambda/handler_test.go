package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sulu/sulu-sub013/cache"
	"github.com/sulu/sulu-sub013/internal/bootstrap"
	"github.com/sulu/sulu-sub013/models"
	"github.com/sulu/sulu-sub013/repository"
	"github.com/sulu/sulu-sub013/resourcelocator"
)

type echo struct {
	Method string              `json:"method"`
	Path   string              `json:"path"`
	Query  map[string][]string `json:"query"`
	Header string              `json:"header"`
	Body   string              `json:"body"`
}

func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Add("X-Trace", "a")
	w.Header().Add("X-Trace", "b")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(echo{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Get("X-Request-Id"),
		Body:   string(body),
	})
}

func setupEchoHandler(t *testing.T) *Handler {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/categories/between", gin.WrapF(echoHandler))
	router.GET("/binary", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/octet-stream", []byte{0xff, 0xfe, 0x00})
	})
	return NewHandler(router, zaptest.NewLogger(t))
}

func TestHandleTranslatesEvents(t *testing.T) {
	handler := setupEchoHandler(t)

	response, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/categories/between",
		MultiValueQueryStringParameters: map[string][]string{
			"scope": {"site"},
			"from":  {"a", "b"},
		},
		Headers:         map[string]string{"X-Request-Id": "req-1"},
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"key":"value"}`)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, response.StatusCode)
	assert.False(t, response.IsBase64Encoded)
	assert.Equal(t, []string{"application/json"}, response.MultiValueHeaders["Content-Type"])
	assert.Equal(t, []string{"a", "b"}, response.MultiValueHeaders["X-Trace"])

	var got echo
	require.NoError(t, json.Unmarshal([]byte(response.Body), &got))
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/categories/between", got.Path)
	assert.Equal(t, []string{"a", "b"}, got.Query["from"])
	assert.Equal(t, []string{"site"}, got.Query["scope"])
	assert.Equal(t, "req-1", got.Header)
	assert.Equal(t, `{"key":"value"}`, got.Body)
}

func TestHandleEncodesBinaryResponses(t *testing.T) {
	handler := setupEchoHandler(t)

	response, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/binary",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.True(t, response.IsBase64Encoded)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, 0x00}), response.Body)
}

func TestHandleRejectsMalformedBody(t *testing.T) {
	handler := setupEchoHandler(t)

	response, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/nodes",
		Body:            "%%%",
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Contains(t, response.Body, "malformed API Gateway event")
}

func TestHandleServesAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	require.NoError(t, store.Initialize(context.Background()))
	app := bootstrap.Wire(store, cache.NewMemoryCache(), resourcelocator.NewPathResolver("", nil), zaptest.NewLogger(t))
	handler := NewHandler(app.Router(), zaptest.NewLogger(t))

	payload, err := json.Marshal(models.CreateNodeRequest{
		Actor: models.Actor{Scope: "site", Locale: "en", AuthorID: "alice"},
		Parts: []string{"Hello World"},
	})
	require.NoError(t, err)

	response, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/nodes",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(payload),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, response.StatusCode, response.Body)

	response, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/api/resourcelocators/resolve",
		QueryStringParameters: map[string]string{"scope": "site", "path": "/hello-world"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode, response.Body)

	var resolution models.Resolution
	require.NoError(t, json.Unmarshal([]byte(response.Body), &resolution))
	assert.Equal(t, "/hello-world", resolution.Path)

	response, err = handler.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/api/nodes/unknown",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
}
