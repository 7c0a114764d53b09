package template_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushpipe/internal/template"
)

func newTestAPI(seed ...template.Template) http.Handler {
	svc := template.NewService(newFakeRepo(seed...), newFakeCache(), nil)
	return template.NewHandler(svc, nil).Router()
}

func TestHandler_CreateAndGet(t *testing.T) {
	t.Parallel()

	api := newTestAPI()

	body := `{"template_code":"welcome","name":"Welcome","body":"Hello {{name}}"}`
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/templates/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates/welcome", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    template.Template `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "welcome", resp.Data.Code)
	assert.Equal(t, []string{"name"}, resp.Data.Variables)
}

func TestHandler_GetNotFound(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestAPI().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "template not found", resp.Message)
}

func TestHandler_CreateConflict(t *testing.T) {
	t.Parallel()

	api := newTestAPI(seedTemplate())

	body := `{"template_code":"order_shipped","body":"dup"}`
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/templates/", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_Render(t *testing.T) {
	t.Parallel()

	api := newTestAPI(seedTemplate())

	body := `{"template_code":"order_shipped","language":"en","variables":{"name":"Ada","order_id":"42"}}`
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/templates/render", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data template.Rendered `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hi Ada, order 42 shipped", resp.Data.Body)
}

func TestHandler_RenderMissingVariables(t *testing.T) {
	t.Parallel()

	api := newTestAPI(seedTemplate())

	body := `{"template_code":"order_shipped","language":"en","variables":{"name":"Ada"}}`
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/templates/render", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DeleteThenGet(t *testing.T) {
	t.Parallel()

	api := newTestAPI(seedTemplate())

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/templates/order_shipped", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates/order_shipped", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_List(t *testing.T) {
	t.Parallel()

	api := newTestAPI(seedTemplate())

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates/?page=1&limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                `json:"success"`
		Data    []template.Template `json:"data"`
		Meta    struct {
			Total int `json:"total"`
			Page  int `json:"page"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Page)
}
