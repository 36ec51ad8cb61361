package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caselink/internal/adapter/api"
	"caselink/internal/adapter/api/handler"
	"caselink/internal/adapter/api/router"
	"caselink/internal/adapter/repository"
	"caselink/internal/infrastructure/firebase"
)

func newDevServer(t *testing.T) (*echo.Echo, *firebase.DevTokenIssuer, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	issuer := firebase.NewDevTokenIssuer("test-secret")
	handler.SetupDevTokenHandler(issuer, store.Users(), store.Cases())

	e := echo.New()
	e.Validator = api.NewValidator()
	router.SetupDevRouter(e, "development")
	return e, issuer, store
}

func TestDevTokenEndpointCreatesUserAndIssuesToken(t *testing.T) {
	e, issuer, store := newDevServer(t)

	req := httptest.NewRequest(http.MethodPost, "/_dev/token", strings.NewReader(`{"user_id": "11", "username": "carol", "role": "lawyer"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	uid, err := issuer.VerifyToken(context.Background(), envelope.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "11", uid)

	user, err := store.Users().GetByID(context.Background(), "11")
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.Equal(t, "lawyer", user.Role)
}

func TestDevCaseEndpointRequiresExistingUsers(t *testing.T) {
	e, _, _ := newDevServer(t)

	req := httptest.NewRequest(http.MethodPost, "/_dev/cases", strings.NewReader(`{"title": "Dispute", "client_id": "3", "lawyer_id": "7"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDevRoutesAbsentOutsideDevelopment(t *testing.T) {
	store := repository.NewMemoryStore()
	handler.SetupDevTokenHandler(firebase.NewDevTokenIssuer("test-secret"), store.Users(), store.Cases())

	e := echo.New()
	router.SetupDevRouter(e, "production")

	req := httptest.NewRequest(http.MethodPost, "/_dev/token", strings.NewReader(`{"user_id": "11"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
