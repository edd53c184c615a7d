package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoparts-market/backend/internal/models"
	"github.com/autoparts-market/backend/pkg/utils"
)

var userCols = []string{"id", "email", "password_hash", "full_name", "phone", "address", "role", "created_at", "updated_at"}

func setupAuth(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface, *JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	jwt := NewJWTService("secret", 1)
	h := NewHandler(NewRepository(mock), jwt, nil)
	r := gin.New()
	r.POST("/auth/login", h.Login)
	return r, mock, jwt
}

func postLogin(r http.Handler, email, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(LoginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginSuccess(t *testing.T) {
	r, mock, jwt := setupAuth(t)
	hash, err := utils.HashPassword("s3cret!")
	require.NoError(t, err)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE LOWER(email) = LOWER($1)`)).
		WithArgs("admin@example.com").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(id, "admin@example.com", hash, "Admin", "", "", "admin", now, now))

	w := postLogin(r, "admin@example.com", "s3cret!")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Body    TokenResponse `json:"body"`
		Message string        `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "success", env.Message)
	assert.Equal(t, id, env.Body.User.ID)

	claims, err := jwt.Parse(env.Body.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.True(t, env.Body.ExpiresAt.After(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPassword(t *testing.T) {
	r, mock, _ := setupAuth(t)
	hash, err := utils.HashPassword("right")
	require.NoError(t, err)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).
		WithArgs("admin@example.com").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(uuid.New(), "admin@example.com", hash, "Admin", "", "", "admin", now, now))

	w := postLogin(r, "admin@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	r, mock, _ := setupAuth(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users`)).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	w := postLogin(r, "nobody@example.com", "x")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email or password")
}

func TestLoginBadRequest(t *testing.T) {
	r, _, _ := setupAuth(t)
	w := postLogin(r, "not-an-email", "x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnsureAdmin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (email) DO NOTHING`)).
		WithArgs("admin@example.com", pgxmock.AnyArg(), "Admin", "admin").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (email) DO NOTHING`)).
		WithArgs("admin@example.com", pgxmock.AnyArg(), "Admin", "admin").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	created, err := repo.EnsureAdmin(context.Background(), "admin@example.com", "hash", "Admin")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.EnsureAdmin(context.Background(), "admin@example.com", "hash", "Admin")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
