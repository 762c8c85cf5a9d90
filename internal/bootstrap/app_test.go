package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/users"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Env:             "test",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		JWTIssuer:       "docflow",
		JWTTTL:          time.Hour,
		MaxUploadBytes:  1 << 20,
		SignRatePerSec:  10,
		SignRateBurst:   10,
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig(t)
	cfg.Env = "production"
	cfg.JWTSecret = "s"
	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
}

func TestBuildInMemoryEndToEnd(t *testing.T) {
	ctx := context.Background()
	app, err := Build(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	require.Nil(t, app.DB)
	require.NotNil(t, app.Mem)

	uploader, err := app.UsersService.Create(ctx, users.CreateInput{Email: "user@example.com", Role: "user"})
	require.NoError(t, err)
	supervisor, err := app.UsersService.Create(ctx, users.CreateInput{Email: "sup@example.com", Role: "supervisor"})
	require.NoError(t, err)

	call := func(req *http.Request, u users.User) *httptest.ResponseRecorder {
		tok, err := app.Tokens.SignJWT(u.ID, u.Email, u.FullName, string(u.Role))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		app.Router.ServeHTTP(w, req)
		return w
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("name", "Contract"))
	fw, err := mw.CreateFormFile("file", "contract.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("terms and conditions"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp := call(req, uploader)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var doc struct {
		DocumentID string `json:"documentId"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &doc))

	resp = call(httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.DocumentID+"/sign", nil), supervisor)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var signed struct {
		SignatureID string `json:"signatureId"`
		Status      string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &signed))
	assert.Equal(t, "APPROVED", signed.Status)

	resp = call(httptest.NewRequest(http.MethodGet, "/api/v1/signatures/"+signed.SignatureID+"/verify", nil), uploader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"valid":true`)

	resp = call(httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.DocumentID+"/history", nil), uploader)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Document signed by sup@example.com")

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "docflow_signatures_created_total 1")
}

func TestSignLimiterDisabledWithoutRate(t *testing.T) {
	cfg := testConfig(t)
	cfg.SignRatePerSec = 0
	assert.Nil(t, signLimiter(cfg))
	cfg.SignRatePerSec = 1
	assert.NotNil(t, signLimiter(cfg))
}
