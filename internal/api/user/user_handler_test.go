package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-registry/internal/api"
	"github.com/FACorreiaa/go-user-registry/internal/types"
)

// MockUserService is a testify mock of the UserService interface.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, fields map[string]any) (*types.User, error) {
	args := m.Called(ctx, fields)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, userID)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]types.User, error) {
	args := m.Called(ctx)
	if u := args.Get(0); u != nil {
		return u.([]types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) ReplaceUser(ctx context.Context, userID uuid.UUID, fields map[string]any) (*types.User, error) {
	args := m.Called(ctx, userID, fields)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) PatchUser(ctx context.Context, userID uuid.UUID, fields map[string]any) (*types.User, error) {
	args := m.Called(ctx, userID, fields)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newTestRouter(svc UserService) chi.Router {
	h := NewHandlerImpl(svc, testLogger())
	r := chi.NewRouter()
	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)
	r.Get("/users/{userID}", h.GetUser)
	r.Put("/users/{userID}", h.ReplaceUser)
	r.Patch("/users/{userID}", h.PatchUser)
	r.Delete("/users/{userID}", h.DeleteUser)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateUserHandler_Created(t *testing.T) {
	svc := new(MockUserService)
	created := existingUser()
	svc.On("CreateUser", mock.Anything, mock.Anything).Return(&created, nil)

	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/users", map[string]any{
		"email":    created.Email,
		"password": "s3cret",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	// The password hash must never leak into a response body.
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.NotContains(t, rec.Body.String(), created.PasswordHash)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.Email, got["email"])
}

func TestCreateUserHandler_ValidationErrors(t *testing.T) {
	svc := new(MockUserService)
	ve := api.NewValidationError()
	ve.Add("email", "Email must contain '@' character.")
	svc.On("CreateUser", mock.Anything, mock.Anything).Return(nil, error(ve))

	rec := doJSON(t, newTestRouter(svc), http.MethodPost, "/users", map[string]any{
		"email": "bad",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var got struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got.Errors["email"], "Email must contain '@' character.")
}

func TestCreateUserHandler_MalformedJSON(t *testing.T) {
	svc := new(MockUserService)
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestGetUserHandler_NotFound(t *testing.T) {
	svc := new(MockUserService)
	id := uuid.New()
	svc.On("GetUser", mock.Anything, id).Return(nil, api.ErrNotFound)

	rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/users/"+id.String(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUserHandler_BadID(t *testing.T) {
	svc := new(MockUserService)

	rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/users/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
}

func TestReplaceUserHandler_Conflict(t *testing.T) {
	svc := new(MockUserService)
	id := uuid.New()
	svc.On("ReplaceUser", mock.Anything, id, mock.Anything).Return(nil, api.ErrConflict)

	rec := doJSON(t, newTestRouter(svc), http.MethodPut, "/users/"+id.String(), map[string]any{
		"email":    "taken@example.com",
		"password": "pw",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPatchUserHandler_OK(t *testing.T) {
	svc := new(MockUserService)
	patched := existingUser()
	svc.On("PatchUser", mock.Anything, patched.ID, map[string]any{"firstname": "Jo"}).
		Return(&patched, nil)

	rec := doJSON(t, newTestRouter(svc), http.MethodPatch, "/users/"+patched.ID.String(), map[string]any{
		"firstname": "Jo",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDeleteUserHandler_NoContent(t *testing.T) {
	svc := new(MockUserService)
	id := uuid.New()
	svc.On("DeleteUser", mock.Anything, id).Return(nil)

	rec := doJSON(t, newTestRouter(svc), http.MethodDelete, "/users/"+id.String(), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestListUsersHandler_OK(t *testing.T) {
	svc := new(MockUserService)
	svc.On("ListUsers", mock.Anything).Return([]types.User{existingUser()}, nil)

	rec := doJSON(t, newTestRouter(svc), http.MethodGet, "/users", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
}
