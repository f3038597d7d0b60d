package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name   string `json:"name" binding:"required,max=10"`
	Sector string `json:"sector" binding:"required,oneof=solar eolica"`
}

func bindJSONResponse(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var p samplePayload
	if BindJSON(c, &p) {
		c.Status(http.StatusOK)
	}
	return w
}

func TestBindJSONValid(t *testing.T) {
	w := bindJSONResponse(t, `{"name":"Eco","sector":"solar"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBindJSONMissingFields(t *testing.T) {
	w := bindJSONResponse(t, `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, MsgInvalidBody, body.Message)
	assert.Equal(t, "El campo name es obligatorio", body.Errors["name"])
	assert.Contains(t, body.Errors, "sector")
}

func TestBindJSONFieldNamesAreJSONTags(t *testing.T) {
	w := bindJSONResponse(t, `{"name":"demasiado largo este nombre","sector":"nuclear"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Errors, "name")
	assert.Contains(t, body.Errors, "sector")
	assert.NotContains(t, body.Errors, "Name")
	assert.Contains(t, body.Errors["sector"], "solar eolica")
}

func TestBindJSONMalformed(t *testing.T) {
	w := bindJSONResponse(t, `{"name":`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
