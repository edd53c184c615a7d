package catalog

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Body    json.RawMessage `json:"body"`
	Message string          `json:"message"`
	Status  int             `json:"status"`
}

func setupCatalog(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	h := NewHandler(NewRepository(mock), nil)
	r := gin.New()
	r.GET("/brands", h.ListBrands)
	r.GET("/brands/:id", h.GetBrand)
	r.POST("/brands", h.CreateBrand)
	r.PUT("/brands/:id", h.UpdateBrand)
	r.DELETE("/brands/:id", h.DeleteBrand)
	r.GET("/models", h.ListModels)
	r.GET("/models/:id", h.GetModel)
	r.POST("/models", h.CreateModel)
	r.PUT("/models/:id", h.UpdateModel)
	r.DELETE("/models/:id", h.DeleteModel)
	return r, mock
}

func call(r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestListBrandsSkipsSoftDeleted(t *testing.T) {
	r, mock := setupCatalog(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE soft_delete = 0 ORDER BY brand ASC`)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "brand", "created_at", "updated_at"}).
			AddRow(int64(2), "Ford", now, now).
			AddRow(int64(1), "Toyota", now, now))

	w, env := call(r, http.MethodGet, "/brands", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Brands []struct {
			Brand string `json:"brand"`
		} `json:"brands"`
	}
	require.NoError(t, json.Unmarshal(env.Body, &body))
	require.Len(t, body.Brands, 2)
	assert.Equal(t, "Ford", body.Brands[0].Brand)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBrandNotFound(t *testing.T) {
	r, mock := setupCatalog(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND soft_delete = 0`)).
		WithArgs(int64(5)).
		WillReturnError(pgx.ErrNoRows)

	w, env := call(r, http.MethodGet, "/brands/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "failed to get brand: Brand not found", env.Message)
}

func TestCreateBrand(t *testing.T) {
	r, mock := setupCatalog(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO brands (brand)`)).
		WithArgs("Nissan").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(3), now, now))

	w, _ := call(r, http.MethodPost, "/brands", gin.H{"brand": "  Nissan "})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env := call(r, http.MethodPost, "/brands", gin.H{"brand": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "brand is required", env.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBrandIsSoft(t *testing.T) {
	r, mock := setupCatalog(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE brands SET soft_delete = 1`)).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE brands SET soft_delete = 1`)).
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	w, env := call(r, http.MethodDelete, "/brands/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Brand deleted successfully", env.Message)

	w, _ = call(r, http.MethodDelete, "/brands/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var modelCols = []string{"id", "model", "brand_id", "brand", "created_at", "updated_at"}

func TestCreateModelReturnsBrandName(t *testing.T) {
	r, mock := setupCatalog(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO models (model, brand_id)`)).
		WithArgs("Corolla", int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE m.id = $1`)).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(modelCols).AddRow(int64(10), "Corolla", int64(1), "Toyota", now, now))

	w, env := call(r, http.MethodPost, "/models", gin.H{"model": "Corolla", "brandId": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Model struct {
			Model   string `json:"model"`
			BrandID int64  `json:"brandId"`
			Brand   string `json:"brand"`
		} `json:"model"`
	}
	require.NoError(t, json.Unmarshal(env.Body, &body))
	assert.Equal(t, "Toyota", body.Model.Brand)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateModelUnknownBrand(t *testing.T) {
	r, mock := setupCatalog(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO models`)).
		WithArgs("Civic", int64(77)).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	w, env := call(r, http.MethodPost, "/models", gin.H{"model": "Civic", "brandId": 77})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "failed to create model: brand does not exist", env.Message)
}

func TestUpdateAndDeleteModelNotFound(t *testing.T) {
	r, mock := setupCatalog(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE models`)).
		WithArgs(int64(4), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM models WHERE id = $1`)).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	w, env := call(r, http.MethodPut, "/models/4", gin.H{"model": "Yaris"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "failed to update model: Model not found", env.Message)

	w, _ = call(r, http.MethodDelete, "/models/4", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListModelsNewestFirst(t *testing.T) {
	r, mock := setupCatalog(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY m.created_at DESC`)).
		WillReturnRows(pgxmock.NewRows(modelCols).
			AddRow(int64(2), "Focus", int64(2), "", now, now).
			AddRow(int64(1), "Corolla", int64(1), "Toyota", now.Add(-time.Hour), now))

	w, env := call(r, http.MethodGet, "/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Body), `"Focus"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidID(t *testing.T) {
	r, _ := setupCatalog(t)
	w, env := call(r, http.MethodGet, "/models/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid model id", env.Message)
}
