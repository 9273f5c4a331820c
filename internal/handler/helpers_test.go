package handler_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"recontab/internal/domain"
	"recontab/internal/handler"
	"recontab/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	tenantID = uuid.MustParse("8a5f1c7e-4b1d-4f0a-9a3e-1c2d3e4f5a6b")
	userID   = uuid.MustParse("0b9e6d2c-7f3a-4c8e-b1d5-2e3f4a5b6c7d")
)

// newAuthedContext returns a test context carrying the claims the auth
// middleware would have set.
func newAuthedContext(w *httptest.ResponseRecorder, role domain.UserRole) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.ContextKeyTenantID, tenantID)
	c.Set(middleware.ContextKeyUserID, userID)
	c.Set(middleware.ContextKeyRole, string(role))
	return c
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}
