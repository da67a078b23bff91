package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchResultsUnavailableWithoutRepository(t *testing.T) {
	h := NewRiskHandler(nil, nil, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/risk/search?q=expired", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.SearchResults(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSearchResultsRequiresQuery(t *testing.T) {
	h := NewRiskHandler(nil, nil, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/risk/search", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.SearchResults(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
