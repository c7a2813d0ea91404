package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskshare/taskshare/internal/broadcast"
	"github.com/taskshare/taskshare/internal/models"
	"github.com/taskshare/taskshare/internal/services"
	"github.com/taskshare/taskshare/internal/storage"
)

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemory()
	broadcaster := broadcast.New(zerolog.Nop(), 16)
	authService := services.NewAuthService(zerolog.Nop(), store, "taskshare-test", []byte("test-key"), time.Minute)
	principalService := services.NewPrincipalService(zerolog.Nop(), store)
	taskService := services.NewTaskService(zerolog.Nop(), store, broadcaster)

	handler := New(zerolog.Nop(), authService, principalService, taskService, broadcaster)

	router := gin.New()
	api := router.Group("/api/v1")

	authRouter := api.Group("/auth")
	authRouter.POST("/register", handler.HandleRegister)
	authRouter.POST("/login", handler.HandleLogin)

	taskRouter := api.Group("/tasks", handler.HandleAuthMiddleware)
	taskRouter.GET("", handler.HandleGetTasks)
	taskRouter.POST("", handler.HandleCreateTask)
	taskRouter.PATCH("/:id", handler.HandleUpdateTask)
	taskRouter.DELETE("/:id", handler.HandleDeleteTask)
	taskRouter.POST("/:id/collaborators", handler.HandleAddCollaborator)
	taskRouter.DELETE("/:id/collaborators/:userId", handler.HandleRemoveCollaborator)

	userRouter := api.Group("/users", handler.HandleAuthMiddleware)
	userRouter.GET("/search", handler.HandleSearchUsers)
	userRouter.PATCH("/me", handler.HandleUpdateProfile)

	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, req)
	return recorder
}

func (s *testServer) register(t *testing.T, email, name string) string {
	t.Helper()
	recorder := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    email,
		"name":     name,
		"password": "long-enough-password",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var response struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.NotEmpty(t, response.AccessToken)
	return response.AccessToken
}

func TestTasksEndToEnd(t *testing.T) {
	server := newTestServer(t)

	ownerToken := server.register(t, "owner@example.com", "Owner")
	collaboratorToken := server.register(t, "collab@example.com", "Collaborator")

	// Create with defaults.
	recorder := server.do(t, http.MethodPost, "/api/v1/tasks", ownerToken, gin.H{"title": "Draft report"})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var created models.TaskView
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, models.PriorityMedium, created.Priority)
	require.NotNil(t, created.Collaborators)
	assert.Empty(t, created.Collaborators)

	// Collaborator sees nothing before being granted.
	recorder = server.do(t, http.MethodGet, "/api/v1/tasks", collaboratorToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var tasks []models.TaskView
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &tasks))
	assert.Empty(t, tasks)

	// Collaborator cannot update without a grant.
	path := fmt.Sprintf("/api/v1/tasks/%s", created.ID)
	recorder = server.do(t, http.MethodPatch, path, collaboratorToken, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Owner grants write.
	recorder = server.do(t, http.MethodPost, path+"/collaborators", ownerToken, gin.H{
		"email":      "collab@example.com",
		"permission": "write",
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	// Now the update succeeds.
	recorder = server.do(t, http.MethodPatch, path, collaboratorToken, gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	// And the owner observes it.
	recorder = server.do(t, http.MethodGet, "/api/v1/tasks", ownerToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, models.StatusCompleted, tasks[0].Status)
	require.Len(t, tasks[0].Collaborators, 1)
	assert.Equal(t, "collab@example.com", tasks[0].Collaborators[0].UserEmail)

	// Collaborator cannot delete; owner can, and only once.
	recorder = server.do(t, http.MethodDelete, path, collaboratorToken, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = server.do(t, http.MethodDelete, path, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = server.do(t, http.MethodDelete, path, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreateTask_ValidationResponse(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "owner@example.com", "Owner")

	recorder := server.do(t, http.MethodPost, "/api/v1/tasks", token, gin.H{
		"title":    "ok",
		"status":   "done",
		"priority": "urgent",
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	// Two violated constraints arrive as an error list.
	var response struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Len(t, response.Errors, 2)
}

func TestAuthRequired(t *testing.T) {
	server := newTestServer(t)

	recorder := server.do(t, http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = server.do(t, http.MethodGet, "/api/v1/tasks", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestDuplicateCollaboratorConflict(t *testing.T) {
	server := newTestServer(t)
	ownerToken := server.register(t, "owner@example.com", "Owner")
	server.register(t, "collab@example.com", "Collaborator")

	recorder := server.do(t, http.MethodPost, "/api/v1/tasks", ownerToken, gin.H{"title": "Draft report"})
	require.Equal(t, http.StatusCreated, recorder.Code)
	var created models.TaskView
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/v1/tasks/%s/collaborators", created.ID)
	grant := gin.H{"email": "collab@example.com", "permission": "read"}

	recorder = server.do(t, http.MethodPost, path, ownerToken, grant)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = server.do(t, http.MethodPost, path, ownerToken, grant)
	assert.Equal(t, http.StatusConflict, recorder.Code)

	// Sharing with an unregistered email is a 404.
	recorder = server.do(t, http.MethodPost, path, ownerToken, gin.H{
		"email":      "ghost@example.com",
		"permission": "read",
	})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUserSearch(t *testing.T) {
	server := newTestServer(t)
	token := server.register(t, "owner@example.com", "Owner")
	server.register(t, "teammate@example.com", "Teammate")

	recorder := server.do(t, http.MethodGet, "/api/v1/users/search?q=team", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var summaries []models.PrincipalSummary
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "teammate@example.com", summaries[0].Email)

	// A one-character query returns an empty list, not the catalog.
	recorder = server.do(t, http.MethodGet, "/api/v1/users/search?q=t", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &summaries))
	assert.Empty(t, summaries)
}
