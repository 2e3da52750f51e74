package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/cashtrackr/internal/account"
	"github.com/dukerupert/cashtrackr/internal/credential"
	"github.com/dukerupert/cashtrackr/internal/database"
	"github.com/dukerupert/cashtrackr/internal/model"
	"github.com/dukerupert/cashtrackr/internal/store"
)

type testServer struct {
	db      *sql.DB
	handler http.Handler
	srv     *Server

	mu     sync.Mutex
	tokens map[string]string
}

func setupServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { db.Close() })

	ts := &testServer{db: db, tokens: map[string]string{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwt := credential.NewJWT("test-secret", time.Hour)
	accounts := account.NewService(store.NewUserStore(db), nil, credential.NewHasher(bcrypt.MinCost), jwt,
		account.WithLogger(logger),
		account.WithTokenObserver(func(addr, token string) {
			ts.mu.Lock()
			ts.tokens[addr] = token
			ts.mu.Unlock()
		}),
	)
	if opts.RateLimit == 0 {
		opts.RateLimit = 1000
		opts.RateWindow = time.Minute
	}
	ts.srv = New(db, accounts, jwt, opts, logger)
	ts.handler = ts.srv.Router()
	return ts
}

func (ts *testServer) token(addr string) string {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.tokens[addr]
}

func (ts *testServer) do(t *testing.T, method, path string, body any, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// signup registers and confirms an account and returns a JWT for it.
func (ts *testServer) signup(t *testing.T, addr string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/create-account", map[string]string{
		"name": "Ana", "lastname": "Lopez", "email": addr, "password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/auth/confirm-account", map[string]string{"token": ts.token(addr)}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": addr, "password": "password123"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var jwt string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jwt))
	return jwt
}

func (ts *testServer) createBudget(t *testing.T, jwt, name string, amount float64) model.Budget {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/budgets", map[string]any{"name": name, "amount": amount}, jwt)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/budgets", nil, jwt)
	require.Equal(t, http.StatusOK, rec.Code)
	var budgets []model.Budget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &budgets))
	for _, b := range budgets {
		if b.Name == name {
			return b
		}
	}
	t.Fatalf("budget %q not listed", name)
	return model.Budget{}
}

func assertMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	assert.JSONEq(t, fmt.Sprintf("%q", msg), rec.Body.String())
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	assert.Equal(t, msg, body.Error)
}

func fieldErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var body struct {
		Errors []struct {
			Field string `json:"field"`
			Msg   string `json:"msg"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	got := map[string]string{}
	for _, e := range body.Errors {
		got[e.Field] = e.Msg
	}
	return got
}

func TestHealth(t *testing.T) {
	ts := setupServer(t, Options{})
	rec := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAccountLifecycle(t *testing.T) {
	ts := setupServer(t, Options{})
	signup := map[string]string{"name": "Ana", "lastname": "Lopez", "email": "ana@example.com", "password": "password123"}
	login := map[string]string{"email": "ana@example.com", "password": "password123"}

	rec := ts.do(t, http.MethodPost, "/api/auth/create-account", signup, "")
	assertMessage(t, rec, http.StatusCreated, "Cuenta creada correctamente, revisa tú email para confirmar la cuenta")

	rec = ts.do(t, http.MethodPost, "/api/auth/create-account", signup, "")
	assertError(t, rec, http.StatusConflict, "El Email ya está registrado")

	rec = ts.do(t, http.MethodPost, "/api/auth/login", login, "")
	assertError(t, rec, http.StatusForbidden, "La cuenta no ha sido confirmada")

	token := ts.token("ana@example.com")
	rec = ts.do(t, http.MethodPost, "/api/auth/confirm-account", map[string]string{"token": token}, "")
	assertMessage(t, rec, http.StatusOK, "Cuenta confirmada correctamente")

	rec = ts.do(t, http.MethodPost, "/api/auth/confirm-account", map[string]string{"token": token}, "")
	assertError(t, rec, http.StatusUnauthorized, "Token no válido")

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@example.com", "password": "wrong-password"}, "")
	assertError(t, rec, http.StatusUnauthorized, "Password Incorrecto")

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "nadie@example.com", "password": "password123"}, "")
	assertError(t, rec, http.StatusNotFound, "El Usuario no esta registrado")

	rec = ts.do(t, http.MethodPost, "/api/auth/login", login, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var jwt string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jwt))

	rec = ts.do(t, http.MethodGet, "/api/auth/user", nil, jwt)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "ana@example.com", profile["email"])
	assert.Equal(t, "Lopez", profile["lastname"])
	assert.NotContains(t, profile, "password")
	assert.NotContains(t, profile, "token")
}

func TestCreateAccountValidation(t *testing.T) {
	ts := setupServer(t, Options{})
	rec := ts.do(t, http.MethodPost, "/api/auth/create-account", map[string]string{"email": "nope", "password": "short"}, "")
	assert.Equal(t, map[string]string{
		"name":     "El nombre no puede ir vacio",
		"lastname": "El apellido no puede ir vacio",
		"email":    "El email no es válido",
		"password": "El password es muy corto, mínimo 8 caracteres",
	}, fieldErrors(t, rec))
}

func TestMalformedJSON(t *testing.T) {
	ts := setupServer(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"email":`))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assertError(t, rec, http.StatusBadRequest, "JSON no válido")
}

func TestPasswordReset(t *testing.T) {
	ts := setupServer(t, Options{})
	ts.signup(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "nadie@example.com"}, "")
	assertError(t, rec, http.StatusNotFound, "El Usuario no esta registrado")

	rec = ts.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ana@example.com"}, "")
	assertMessage(t, rec, http.StatusOK, "Se ha enviado un mail a tú correo para recuperar tú password")
	token := ts.token("ana@example.com")

	rec = ts.do(t, http.MethodPost, "/api/auth/validate-token", map[string]string{"token": token}, "")
	assertMessage(t, rec, http.StatusOK, "Token válido, asigna un nuevo password")

	wrong := "000000"
	if token == wrong {
		wrong = "111111"
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/validate-token", map[string]string{"token": wrong}, "")
	assertError(t, rec, http.StatusNotFound, "Token no válido")

	rec = ts.do(t, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{"password": "short"}, "")
	assert.Equal(t, map[string]string{"password": "El password es muy corto, mínimo 8 caracteres"}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/reset-password/abc", map[string]string{"password": "newpassword1"}, "")
	assert.Equal(t, map[string]string{"token": "Token no válido"}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{"password": "newpassword1"}, "")
	assertMessage(t, rec, http.StatusOK, "El password se actualizo correctamente")

	rec = ts.do(t, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{"password": "newpassword2"}, "")
	assertError(t, rec, http.StatusNotFound, "Token no válido")

	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@example.com", "password": "newpassword1"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticatedPasswordRoutes(t *testing.T) {
	ts := setupServer(t, Options{})
	jwt := ts.signup(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/api/auth/check-password", map[string]string{"password": "password123"}, jwt)
	assertMessage(t, rec, http.StatusOK, "El password correcto")

	rec = ts.do(t, http.MethodPost, "/api/auth/check-password", map[string]string{"password": "nope"}, jwt)
	assertError(t, rec, http.StatusUnauthorized, "El Password actual es incorrecto")

	rec = ts.do(t, http.MethodPost, "/api/auth/update-password", map[string]string{"current_password": "nope", "password": "newpassword1"}, jwt)
	assertError(t, rec, http.StatusUnauthorized, "El Password actual es incorrecto")

	rec = ts.do(t, http.MethodPost, "/api/auth/update-password", map[string]string{"password": "short"}, jwt)
	assert.Equal(t, map[string]string{
		"current_password": "El password actual no puede estar vacio",
		"password":         "El password nuevo es muy corto, mínimo 8 caracteres",
	}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/update-password", map[string]string{"current_password": "password123", "password": "newpassword1"}, jwt)
	assertMessage(t, rec, http.StatusOK, "El password se actualizo correctamente")

	rec = ts.do(t, http.MethodPost, "/api/auth/check-password", map[string]string{"password": "newpassword1"}, jwt)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordsPastBcryptLimitAreRejected(t *testing.T) {
	ts := setupServer(t, Options{})
	jwt := ts.signup(t, "ana@example.com")
	long := strings.Repeat("a", 80)

	rec := ts.do(t, http.MethodPost, "/api/auth/create-account", map[string]string{
		"name": "Luis", "lastname": "Perez", "email": "luis@example.com", "password": long,
	}, "")
	assert.Equal(t, map[string]string{"password": "El password es muy largo, máximo 72 caracteres"}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ana@example.com"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/auth/reset-password/"+ts.token("ana@example.com"), map[string]string{"password": long}, "")
	assert.Equal(t, map[string]string{"password": "El password es muy largo, máximo 72 caracteres"}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/update-password", map[string]string{"current_password": "password123", "password": long}, jwt)
	assert.Equal(t, map[string]string{"password": "El password nuevo es muy largo, máximo 72 caracteres"}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/update-password", map[string]string{"current_password": "password123", "password": strings.Repeat("a", 72)}, jwt)
	assertMessage(t, rec, http.StatusOK, "El password se actualizo correctamente")
}

func TestUpdateProfile(t *testing.T) {
	ts := setupServer(t, Options{})
	jwt := ts.signup(t, "ana@example.com")
	ts.signup(t, "luis@example.com")

	rec := ts.do(t, http.MethodPut, "/api/auth/user", map[string]string{"name": "Ana", "lastname": "Lopez", "email": "luis@example.com"}, jwt)
	assertError(t, rec, http.StatusConflict, "El Email ya está registrado")

	rec = ts.do(t, http.MethodPut, "/api/auth/user", map[string]string{"name": "Ana María", "lastname": "López", "email": "ana@example.com"}, jwt)
	assertMessage(t, rec, http.StatusOK, "Perfil actualizado correctamente")

	rec = ts.do(t, http.MethodGet, "/api/auth/user", nil, jwt)
	var profile model.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Ana María", profile.Name)
}

func TestAuthentication(t *testing.T) {
	ts := setupServer(t, Options{})

	rec := ts.do(t, http.MethodGet, "/api/budgets", nil, "")
	assertError(t, rec, http.StatusUnauthorized, "No Autorizado")

	req := httptest.NewRequest(http.MethodGet, "/api/budgets", nil)
	req.Header.Set("Authorization", "Bearer")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assertError(t, rec, http.StatusUnauthorized, "Token no válido")

	rec = ts.do(t, http.MethodGet, "/api/auth/user", nil, "not.a.jwt")
	assertError(t, rec, http.StatusUnauthorized, "Token no válido")
}

func TestBudgetCRUD(t *testing.T) {
	ts := setupServer(t, Options{})
	jwt := ts.signup(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/api/budgets", map[string]any{"name": "", "amount": 0}, jwt)
	assert.Equal(t, map[string]string{
		"name":   "El nombre del presupuesto es obligatorio",
		"amount": "El Presupuesto debe ser mayor a 0",
	}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/budgets", map[string]any{"name": "Casa", "amount": "mucho"}, jwt)
	assert.Equal(t, map[string]string{"amount": "Cantidad no válida"}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/budgets", nil, jwt)
	assert.JSONEq(t, `[]`, rec.Body.String())

	home := ts.createBudget(t, jwt, "Casa", 1000)
	ts.createBudget(t, jwt, "Viaje", 500)
	path := fmt.Sprintf("/api/budgets/%d", home.ID)

	rec = ts.do(t, http.MethodGet, "/api/budgets", nil, jwt)
	var list []model.Budget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Viaje", list[0].Name, "newest first")

	rec = ts.do(t, http.MethodPut, path, map[string]any{"name": "Hogar", "amount": 1500}, jwt)
	assertMessage(t, rec, http.StatusOK, "Presupuesto actualizado correctamente")

	rec = ts.do(t, http.MethodGet, path, nil, jwt)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail model.BudgetDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Hogar", detail.Name)
	assert.Equal(t, 1500.0, detail.Amount)
	assert.Empty(t, detail.Expenses)

	rec = ts.do(t, http.MethodDelete, path, nil, jwt)
	assertMessage(t, rec, http.StatusOK, "Presupuesto eliminado")

	rec = ts.do(t, http.MethodGet, path, nil, jwt)
	assertError(t, rec, http.StatusNotFound, "Presupuesto no encontrado")
}

func TestBudgetAccess(t *testing.T) {
	ts := setupServer(t, Options{})
	owner := ts.signup(t, "ana@example.com")
	stranger := ts.signup(t, "luis@example.com")
	home := ts.createBudget(t, owner, "Casa", 1000)
	path := fmt.Sprintf("/api/budgets/%d", home.ID)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := ts.do(t, method, path, map[string]any{"name": "Mío", "amount": 1}, stranger)
		assertError(t, rec, http.StatusUnauthorized, "Acción no válida")
	}

	rec := ts.do(t, http.MethodGet, "/api/budgets/abc", nil, owner)
	assert.Equal(t, map[string]string{"budgetId": "ID no válido"}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/budgets/0", nil, owner)
	assert.Equal(t, map[string]string{"budgetId": "ID no válido"}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/budgets/9999", nil, owner)
	assertError(t, rec, http.StatusNotFound, "Presupuesto no encontrado")

	rec = ts.do(t, http.MethodGet, "/api/budgets", nil, stranger)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestExpenseCRUD(t *testing.T) {
	ts := setupServer(t, Options{})
	jwt := ts.signup(t, "ana@example.com")
	home := ts.createBudget(t, jwt, "Casa", 1000)
	base := fmt.Sprintf("/api/budgets/%d/expenses", home.ID)

	rec := ts.do(t, http.MethodPost, base, map[string]any{"name": "", "amount": -5}, jwt)
	assert.Equal(t, map[string]string{
		"name":   "El nombre del gasto es obligatorio",
		"amount": "El gasto debe ser mayor a 0",
	}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodPost, base, map[string]any{"name": "Renta"}, jwt)
	assert.Equal(t, map[string]string{"amount": "La cantidad del gasto es obligatoria"}, fieldErrors(t, rec))

	rec = ts.do(t, http.MethodPost, base, map[string]any{"name": "Renta", "amount": 400}, jwt)
	assertMessage(t, rec, http.StatusCreated, "Gasto creado correctamente")

	rec = ts.do(t, http.MethodGet, base, nil, jwt)
	var expenses []model.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expenses))
	require.Len(t, expenses, 1)
	rent := expenses[0]
	assert.Equal(t, home.ID, rent.BudgetID)
	path := fmt.Sprintf("%s/%d", base, rent.ID)

	rec = ts.do(t, http.MethodGet, path, nil, jwt)
	var got model.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Renta", got.Name)
	assert.Equal(t, 400.0, got.Amount)

	rec = ts.do(t, http.MethodPut, path, map[string]any{"name": "Renta", "amount": "450.50"}, jwt)
	assertMessage(t, rec, http.StatusOK, "Gasto actualizado correctamente")

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/budgets/%d", home.ID), nil, jwt)
	var detail model.BudgetDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Expenses, 1)
	assert.Equal(t, 450.5, detail.Expenses[0].Amount)

	rec = ts.do(t, http.MethodDelete, path, nil, jwt)
	assertMessage(t, rec, http.StatusOK, "Gasto eliminado correctamente")

	rec = ts.do(t, http.MethodGet, path, nil, jwt)
	assertError(t, rec, http.StatusNotFound, "Gasto no encontrado")
}

func TestExpenseAccess(t *testing.T) {
	ts := setupServer(t, Options{})
	owner := ts.signup(t, "ana@example.com")
	stranger := ts.signup(t, "luis@example.com")
	home := ts.createBudget(t, owner, "Casa", 1000)
	trip := ts.createBudget(t, owner, "Viaje", 500)

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/budgets/%d/expenses", home.ID), map[string]any{"name": "Renta", "amount": 400}, owner)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/budgets/%d/expenses", home.ID), nil, owner)
	var expenses []model.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expenses))
	rentID := expenses[0].ID

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/budgets/%d/expenses/%d", trip.ID, rentID), nil, owner)
	assertError(t, rec, http.StatusForbidden, "Acción no Válida")

	// Budget ownership is checked before the expense is looked at.
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/budgets/%d/expenses/%d", home.ID, rentID), nil, stranger)
	assertError(t, rec, http.StatusUnauthorized, "Acción no válida")

	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/api/budgets/%d/expenses/x", home.ID), nil, owner)
	assert.Equal(t, map[string]string{"expenseId": "ID no válido"}, fieldErrors(t, rec))

	// Deleting the budget removes its expenses.
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/budgets/%d", home.ID), nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	e, err := store.NewExpenseStore(ts.db).GetByID(context.Background(), rentID)
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	ts := setupServer(t, Options{RateLimit: 2, RateWindow: time.Minute})
	body := map[string]string{"email": "ana@example.com", "password": "password123"}

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/auth/login", body, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Budget routes share no bucket with auth routes.
	rec = ts.do(t, http.MethodGet, "/api/budgets", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitKeysOnRemoteAddr(t *testing.T) {
	ts := setupServer(t, Options{RateLimit: 1, RateWindow: time.Minute})

	login := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"password123"}`))
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, login("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, login("10.0.0.2"))
}

func TestRateLimitTrustsProxyHeadersWhenEnabled(t *testing.T) {
	ts := setupServer(t, Options{RateLimit: 1, RateWindow: time.Minute, TrustProxy: true})

	login := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"password123"}`))
		req.Header.Set("X-Forwarded-For", forwardedFor)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, login("10.0.0.1"))
	assert.Equal(t, http.StatusNotFound, login("10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, login("10.0.0.1"))
}

func TestCollectionRoutesAcceptTrailingSlash(t *testing.T) {
	ts := setupServer(t, Options{})
	jwt := ts.signup(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/api/budgets/", map[string]any{"name": "Casa", "amount": 500}, jwt)
	assertMessage(t, rec, http.StatusCreated, "Presupuesto creado correctamente")

	rec = ts.do(t, http.MethodGet, "/api/budgets/", nil, jwt)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var budgets []model.Budget
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &budgets))
	require.Len(t, budgets, 1)

	base := fmt.Sprintf("/api/budgets/%d/expenses/", budgets[0].ID)
	rec = ts.do(t, http.MethodPost, base, map[string]any{"name": "Renta", "amount": 100}, jwt)
	assertMessage(t, rec, http.StatusCreated, "Gasto creado correctamente")

	rec = ts.do(t, http.MethodGet, base, nil, jwt)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var expenses []model.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expenses))
	assert.Len(t, expenses, 1)
}

func TestAmountOverflowIsInvalid(t *testing.T) {
	ts := setupServer(t, Options{})
	jwt := ts.signup(t, "ana@example.com")

	rec := ts.do(t, http.MethodPost, "/api/budgets", map[string]any{"name": "Casa", "amount": strings.Repeat("9", 400)}, jwt)
	assert.Equal(t, map[string]string{"amount": "Cantidad no válida"}, fieldErrors(t, rec))
}

func TestInternalErrorsAreHidden(t *testing.T) {
	ts := setupServer(t, Options{})
	require.NoError(t, ts.db.Close())

	rec := ts.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@example.com", "password": "password123"}, "")
	assertError(t, rec, http.StatusInternalServerError, "Hubo un error")

	rec = ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
