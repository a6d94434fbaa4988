package httpapi

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberhub-backend-go/internal/models"
)

func (ts *testServer) upload(t *testing.T, token, filename, hint string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if filename != "" {
		part, err := form.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if hint != "" {
		require.NoError(t, form.WriteField("context", hint))
	}
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestUploads(t *testing.T) {
	ts := newTestServer(t)
	_, alice := ts.userToken(t, "alice@example.org", models.RoleUser, models.ApprovalApproved)
	_, bob := ts.userToken(t, "bob@example.org", models.RoleUser, models.ApprovalApproved)
	_, admin := ts.adminToken(t)

	t.Run("Should require a session", func(t *testing.T) {
		rec := ts.upload(t, "", "notes.txt", "", []byte("hello"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Should require a file part", func(t *testing.T) {
		rec := ts.upload(t, alice, "", "avatar", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "file is required", errorMessage(t, rec))
	})

	t.Run("Should refuse files above the limit", func(t *testing.T) {
		rec := ts.upload(t, alice, "big.bin", "", bytes.Repeat([]byte{'a'}, 3<<19))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "File is too large", errorMessage(t, rec))
	})

	t.Run("Should store, serve and delete a file", func(t *testing.T) {
		rec := ts.upload(t, alice, "notes.txt", "", []byte("hello members"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		uploaded := decode[UploadDTO](t, rec)
		assert.Equal(t, "documents", uploaded.Folder)
		assert.Equal(t, "text/plain", uploaded.MimeType)
		assert.Equal(t, int64(len("hello members")), uploaded.SizeBytes)
		assert.True(t, strings.HasPrefix(uploaded.URL, "/files/documents/"), uploaded.URL)

		rec = ts.do(t, http.MethodGet, uploaded.URL, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello members", rec.Body.String())

		path := "/api/uploads/" + strconv.FormatInt(uploaded.ID, 10)
		rec = ts.do(t, http.MethodDelete, path, bob, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = ts.do(t, http.MethodDelete, path, alice, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = ts.do(t, http.MethodGet, uploaded.URL, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "File not found", errorMessage(t, rec))
		rec = ts.do(t, http.MethodDelete, path, admin, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Should route by context hint", func(t *testing.T) {
		rec := ts.upload(t, alice, "me.png", "avatar", []byte("\x89PNG\r\n\x1a\n0000"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "avatars", decode[UploadDTO](t, rec).Folder)
	})

	t.Run("Should not serve paths outside the upload tree", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/files/documents", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = ts.do(t, http.MethodGet, "/files/a/b/c.txt", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUploadsWithoutStorage(t *testing.T) {
	ts := newTestServer(t)
	ts.Storage = nil
	_, alice := ts.userToken(t, "alice@example.org", models.RoleUser, models.ApprovalApproved)

	rec := ts.upload(t, alice, "notes.txt", "", []byte("hello"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Storage unavailable", errorMessage(t, rec))
}
