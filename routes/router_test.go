package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"civictrack-be/config"
	"civictrack-be/controllers"
	"civictrack-be/filestore"
	"civictrack-be/filestore/mocks"
	"civictrack-be/middlewares"
	"civictrack-be/models"
	"civictrack-be/services"
	"civictrack-be/store"
	"civictrack-be/utils"
)

var secret = []byte("router-test-secret")

type limitCounter struct{ n int64 }

func (l *limitCounter) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	l.n++
	return l.n, time.Hour, nil
}

type app struct {
	router *gin.Engine
	mem    *store.Memory
	files  *mocks.MockFileStore
}

func newApp(t *testing.T, limit int64) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := logtest.NewNullLogger()
	mem := store.NewMemory()
	require.NoError(t, config.SeedLookups(context.Background(), mem, config.DefaultCategories, log))

	files := &mocks.MockFileStore{}
	files.On("Upload", mock.Anything, mock.Anything).Return(func(_ context.Context, f filestore.FileUpload) filestore.StoredFile {
		return filestore.StoredFile{URL: "http://files.test/" + f.FileName, PublicID: "key-" + f.FileName}
	}, nil).Maybe()
	files.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()

	auth := services.NewAuthService(mem.Users(), secret, time.Minute, time.Hour)
	h := &Handlers{
		Auth:          controllers.NewAuthController(auth, false, log),
		Issues:        controllers.NewIssueController(services.NewIssueService(mem, files, log), log),
		Comments:      controllers.NewCommentController(services.NewCommentService(mem, files, log), log),
		Lookups:       controllers.NewLookupController(services.NewLookupService(mem), log),
		Authenticator: auth,
		IssueLimit:    &limitCounter{},
		LimitKey:      "issue_limit",
		DailyLimit:    limit,
		Log:           log,
	}
	return &app{router: NewRouter(h, Options{CORSOrigin: "http://localhost:5173"}), mem: mem, files: files}
}

func (a *app) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *app) json(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, token)
}

// multipartRequest builds a form with one JSON part and the named files.
func multipartRequest(t *testing.T, path, jsonPart string, payload any, fileNames ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if jsonPart != "" {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		require.NoError(t, w.WriteField(jsonPart, string(raw)))
	}
	for _, name := range fileNames {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("content of " + name))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *app) register(t *testing.T, userName string) string {
	t.Helper()
	w := a.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"fullName": "User " + userName, "userName": userName, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[services.AuthResponse](t, w).AccessToken
}

func (a *app) staffToken(t *testing.T, id int64, role models.Role) string {
	t.Helper()
	require.NoError(t, a.mem.Users().Create(context.Background(), &models.User{
		ID: id, FullName: fmt.Sprintf("Staff %d", id), UserName: fmt.Sprintf("staff%d", id), Roles: []models.Role{role},
	}))
	token, err := utils.GenerateToken(secret, id, utils.AccessToken, time.Minute)
	require.NoError(t, err)
	return token
}

var newIssue = map[string]any{
	"title":       "Broken streetlight on Main",
	"description": "The lamp at the corner has been dark for a week.",
	"category":    "Streetlights",
	"latitude":    52.37,
	"longitude":   4.89,
}

func TestPing(t *testing.T) {
	a := newApp(t, 20)
	w := a.do(httptest.NewRequest(http.MethodGet, "/ping", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w = a.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "civictrack_http_requests_total")
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t, 20)

	w := a.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"fullName": "Cora Citizen", "userName": "cora", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode[services.AuthResponse](t, w)
	assert.Equal(t, []string{"ROLE_CITIZEN"}, resp.Roles)

	var refresh *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "refreshToken" {
			refresh = c
		}
	}
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)

	w = a.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"fullName": "Cora Again", "userName": "cora", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username is already taken!", decode[map[string]any](t, w)["message"])

	w = a.json(http.MethodPost, "/api/auth/register", "", map[string]string{"userName": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[map[string]any](t, w), "errors")

	w = a.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"fullName": "   a   ", "userName": "padded", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	padded := decode[middlewares.ErrorBody](t, w)
	assert.Equal(t, "Validation failed", padded.Message)
	assert.Equal(t, map[string]string{
		"fullName": "Full name must be between 3 and 200 characters and cannot be blank",
	}, padded.Errors)

	w = a.json(http.MethodPost, "/api/auth/login", "", map[string]string{"userName": "cora", "password": "nope!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.json(http.MethodPost, "/api/auth/login", "", map[string]string{"userName": "cora", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[services.AuthResponse](t, w).AccessToken

	w = a.json(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cora", decode[services.UserView](t, w).UserName)

	w = a.json(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.json(http.MethodPost, "/api/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Refresh token not found. Please login again.", decode[map[string]any](t, w)["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(refresh)
	w = a.do(req, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[services.AuthResponse](t, w).AccessToken)

	w = a.json(http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "refreshToken=;")
}

func TestIssueLifecycle(t *testing.T) {
	a := newApp(t, 20)
	citizen := a.register(t, "cora")
	neighbor := a.register(t, "nate")
	staff := a.staffToken(t, 900, models.RoleStaff)

	// Create.
	w := a.do(multipartRequest(t, "/api/issues", "issueData", newIssue, "lamp.jpg", "street.jpg"), citizen)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[services.IssueDetails](t, w)
	assert.Equal(t, "OPEN", created.Status)
	assert.Equal(t, "Medium", created.Priority)
	assert.Len(t, created.Attachments, 2)
	issuePath := fmt.Sprintf("/api/issues/%d", created.ID)

	// Comment with a reply.
	w = a.do(multipartRequest(t, issuePath+"/comments", "commentData", map[string]any{"text": "Seen it too"}, "proof.png"), neighbor)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[services.CommentView](t, w)
	assert.Len(t, comment.Attachments, 1)

	w = a.do(multipartRequest(t, issuePath+"/comments", "commentData", map[string]any{"text": "Thanks", "parentId": comment.ID}), citizen)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Detail view.
	w = a.json(http.MethodGet, issuePath, neighbor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	details := decode[services.IssueDetails](t, w)
	require.Len(t, details.Comments, 2)
	assert.Equal(t, comment.ID, *details.Comments[1].ParentID)

	// Only the reporter, admins or the assignee may update.
	w = a.json(http.MethodPut, issuePath, neighbor, map[string]any{"statusId": 2})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.json(http.MethodPut, issuePath, citizen, map[string]any{"assigneeId": 900, "statusId": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[services.IssueDetails](t, w)
	assert.Equal(t, "IN_PROGRESS", updated.Status)
	assert.Equal(t, int64(900), updated.Assignee.ID)
	assert.Equal(t, created.Title, updated.Title)

	w = a.json(http.MethodPut, issuePath, staff, map[string]any{
		"startDate": "2024-07-02T00:00:00Z", "dueDate": "2024-07-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Due date cannot be before the start date.", decode[map[string]any](t, w)["message"])

	// Listing.
	w = a.json(http.MethodGet, "/api/issues?assignedTo=me", staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["totalElements"])

	w = a.json(http.MethodGet, "/api/issues?assignedTo=me", citizen, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.json(http.MethodGet, "/api/issues?filter=title:contains:streetlight&sort=priority,desc", citizen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["totalElements"])

	w = a.json(http.MethodGet, "/api/issues?filter=votes:equals:3", citizen, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.json(http.MethodGet, "/api/issues?page=-1", citizen, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Delete comment thread, then the issue.
	w = a.json(http.MethodDelete, fmt.Sprintf("%s/comments/%d", issuePath, comment.ID), citizen, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.json(http.MethodDelete, fmt.Sprintf("%s/comments/%d", issuePath, comment.ID), neighbor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Comment deleted successfully."}`, w.Body.String())

	w = a.json(http.MethodDelete, issuePath, staff, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.json(http.MethodDelete, issuePath, citizen, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fmt.Sprintf("Issue %d deleted successfully.", created.ID), decode[map[string]any](t, w)["message"])

	w = a.json(http.MethodGet, issuePath, citizen, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	a.files.AssertNumberOfCalls(t, "Delete", 3)
}

func TestCreateIssueValidation(t *testing.T) {
	a := newApp(t, 20)
	token := a.register(t, "cora")

	w := a.do(multipartRequest(t, "/api/issues", "issueData", newIssue), token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Cannot create an issue without at least one attachment.", decode[map[string]any](t, w)["message"])

	short := map[string]any{"title": "short", "description": "tiny", "category": "Roads"}
	w = a.do(multipartRequest(t, "/api/issues", "issueData", short, "a.png"), token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Contains(t, body["errors"], "title")
	assert.Contains(t, body["errors"], "latitude")

	w = a.do(multipartRequest(t, "/api/issues", "", nil, "a.png"), token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/issues", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w = a.do(req, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.json(http.MethodGet, "/api/issues/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIssueRateLimit(t *testing.T) {
	a := newApp(t, 1)
	token := a.register(t, "cora")

	w := a.do(multipartRequest(t, "/api/issues", "issueData", newIssue, "a.png"), token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(multipartRequest(t, "/api/issues", "issueData", newIssue, "a.png"), token)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.EqualValues(t, 3600, decode[map[string]any](t, w)["retry_after"])
}

func TestLookups(t *testing.T) {
	a := newApp(t, 20)
	token := a.register(t, "cora")
	a.staffToken(t, 900, models.RoleStaff)

	w := a.json(http.MethodGet, "/api/priorities", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	prios := decode[[]models.Priority](t, w)
	require.Len(t, prios, 5)
	assert.Equal(t, "Highest", prios[0].Name)

	w = a.json(http.MethodGet, "/api/categories", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Category](t, w), len(config.DefaultCategories))

	w = a.json(http.MethodGet, "/api/statuses", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Status](t, w), 3)

	w = a.json(http.MethodGet, "/api/users?role=staff", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode[[]services.UserView](t, w)
	require.Len(t, users, 1)
	assert.Equal(t, int64(900), users[0].ID)

	w = a.json(http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
