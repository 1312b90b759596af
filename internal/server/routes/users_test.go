package routes

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/graphvis/internal/server/middleware"
	pgdb "github.com/OFFIS-RIT/graphvis/pkg/db/pgx"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

var (
	testSecret = []byte("test-secret")
	aliceID    = uuid.MustParse("7b0f4f4e-7b1c-4f53-9d7e-0d7c6b2a1e01")
	bobID      = uuid.MustParse("7b0f4f4e-7b1c-4f53-9d7e-0d7c6b2a1e02")
)

func testUser(t *testing.T, password string) pgdb.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := pgtype.Timestamptz{Time: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Valid: true}
	return pgdb.User{
		ID:        pgtype.UUID{Bytes: aliceID, Valid: true},
		Firstname: "Alice",
		Lastname:  "Liddell",
		Email:     "alice@example.com",
		Password:  string(hash),
		Role:      middleware.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func self() *middleware.AppUser {
	return &middleware.AppUser{
		UserID:      aliceID.String(),
		Role:        middleware.RoleUser,
		Permissions: middleware.PermissionsFor(middleware.RoleUser),
	}
}

func TestStrongPassword(t *testing.T) {
	for p, want := range map[string]bool{
		"Secret123": true,
		"secret123": false,
		"SECRET123": false,
		"SecretPwd": false,
		"Se1":       false,
	} {
		if got := StrongPassword(p); got != want {
			t.Fatalf("%q: expected %v, got %v", p, want, got)
		}
	}
}

func TestSignUpHandler_Created(t *testing.T) {
	db := &fakeDB{row: userRow(testUser(t, "Secret123"))}
	e := newTestServer(&middleware.App{DB: db, JWTSecret: testSecret, JWTExpire: time.Hour}, nil)

	rec := doJSON(e, http.MethodPost, "/api/auth/signup",
		`{"firstname":"Alice","lastname":"Liddell","email":"Alice@Example.com","password":"Secret123","confirmPassword":"Secret123"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("expected no password in response, got %s", rec.Body.String())
	}

	if len(db.args) != 5 {
		t.Fatalf("expected 5 insert args, got %d", len(db.args))
	}
	if db.args[2] != "alice@example.com" || db.args[4] != middleware.RoleUser {
		t.Fatalf("unexpected insert args %v", db.args)
	}
	if bcrypt.CompareHashAndPassword([]byte(db.args[3].(string)), []byte("Secret123")) != nil {
		t.Fatal("expected stored password to be a bcrypt hash of the input")
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims := new(middleware.Claims)
	if _, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (any, error) { return testSecret, nil }); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.ID != aliceID.String() || claims.Role != middleware.RoleUser || resp.User.ID != aliceID.String() {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestSignUpHandler_Rejected(t *testing.T) {
	cases := map[string]string{
		"mismatch":  `{"firstname":"A","lastname":"B","email":"a@b.de","password":"Secret123","confirmPassword":"Secret124"}`,
		"weak":      `{"firstname":"A","lastname":"B","email":"a@b.de","password":"secret","confirmPassword":"secret"}`,
		"bad email": `{"firstname":"A","lastname":"B","email":"nope","password":"Secret123","confirmPassword":"Secret123"}`,
	}
	for name, body := range cases {
		db := &fakeDB{}
		e := newTestServer(&middleware.App{DB: db, JWTSecret: testSecret}, nil)

		rec := doJSON(e, http.MethodPost, "/api/auth/signup", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
		if db.args != nil {
			t.Fatalf("%s: expected no query", name)
		}
	}
}

func TestSignUpHandler_DuplicateEmail(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: &pgconn.PgError{Code: uniqueViolation}}}
	e := newTestServer(&middleware.App{DB: db, JWTSecret: testSecret}, nil)

	rec := doJSON(e, http.MethodPost, "/api/auth/signup",
		`{"firstname":"A","lastname":"B","email":"a@b.de","password":"Secret123","confirmPassword":"Secret123"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLoginHandler(t *testing.T) {
	u := testUser(t, "Secret123")
	blocked := u
	blocked.Blocked = true

	cases := []struct {
		name     string
		row      fakeRow
		password string
		want     int
	}{
		{"ok", userRow(u), "Secret123", http.StatusOK},
		{"wrong password", userRow(u), "Secret124", http.StatusUnauthorized},
		{"unknown", fakeRow{err: pgx.ErrNoRows}, "Secret123", http.StatusUnauthorized},
		{"blocked", userRow(blocked), "Secret123", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		e := newTestServer(&middleware.App{DB: &fakeDB{row: tc.row}, JWTSecret: testSecret, JWTExpire: time.Hour}, nil)
		rec := doJSON(e, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"`+tc.password+`"}`)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
		if tc.want == http.StatusOK && !strings.Contains(rec.Body.String(), `"token"`) {
			t.Fatalf("%s: expected token, got %s", tc.name, rec.Body.String())
		}
	}
}

func TestGetCurrentUserHandler(t *testing.T) {
	db := &fakeDB{row: userRow(testUser(t, "Secret123"))}
	e := newTestServer(&middleware.App{DB: db}, self())

	rec := do(e, http.MethodGet, "/api/users/current", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if id := db.args[0].(pgtype.UUID); id.Bytes != aliceID {
		t.Fatalf("expected lookup of %s, got %v", aliceID, id)
	}
}

func TestUpdateCurrentUserHandler_IgnoresRole(t *testing.T) {
	db := &fakeDB{row: userRow(testUser(t, "Secret123"))}
	e := newTestServer(&middleware.App{DB: db}, self())

	rec := doJSON(e, http.MethodPut, "/api/users", `{"firstname":"Al","role":"admin"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if first := db.args[0].(pgtype.Text); !first.Valid || first.String != "Al" {
		t.Fatalf("unexpected firstname arg %+v", first)
	}
	if role := db.args[3].(pgtype.Text); role.Valid {
		t.Fatalf("expected role to stay unset, got %+v", role)
	}

	rec = doJSON(e, http.MethodPut, "/api/users", `{"role":"admin"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for role-only update, got %d", rec.Code)
	}
}

func TestUpdatePasswordHandler(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"oldPassword":"Secret123","password":"Better456","confirmPassword":"Better456"}`, http.StatusOK},
		{"wrong old", `{"oldPassword":"Secret999","password":"Better456","confirmPassword":"Better456"}`, http.StatusBadRequest},
		{"mismatch", `{"oldPassword":"Secret123","password":"Better456","confirmPassword":"Better457"}`, http.StatusBadRequest},
		{"weak", `{"oldPassword":"Secret123","password":"better","confirmPassword":"better"}`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		db := &fakeDB{row: userRow(testUser(t, "Secret123")), affected: 1}
		e := newTestServer(&middleware.App{DB: db}, self())

		rec := doJSON(e, http.MethodPut, "/api/users/password", tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
		if tc.want == http.StatusOK {
			hash := db.args[1].(string)
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte("Better456")) != nil {
				t.Fatalf("%s: expected new password hash", tc.name)
			}
		}
	}
}

func TestBlockUserHandler(t *testing.T) {
	db := &fakeDB{row: userRow(testUser(t, "Secret123"))}
	e := newTestServer(&middleware.App{DB: db}, self())

	rec := doJSON(e, http.MethodPut, "/api/users/block/"+aliceID.String(), `{"blocked":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if db.args[1] != false {
		t.Fatalf("expected blocked=false, got %v", db.args[1])
	}

	rec = doJSON(e, http.MethodPut, "/api/users/block/"+aliceID.String(), `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without blocked, got %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPut, "/api/users/block/nope", `{"blocked":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
	}

	db.row = fakeRow{err: pgx.ErrNoRows}
	rec = doJSON(e, http.MethodPut, "/api/users/block/"+bobID.String(), `{"blocked":true}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
}

func TestDeleteUsersHandler(t *testing.T) {
	body := `{"ids":["` + aliceID.String() + `","` + bobID.String() + `","` + bobID.String() + `"]}`

	cases := []struct {
		name     string
		body     string
		affected int64
		want     int
		commit   bool
	}{
		{"all", body, 2, http.StatusNoContent, true},
		{"partial", body, 1, http.StatusConflict, false},
		{"single missing", `{"ids":["` + aliceID.String() + `"]}`, 0, http.StatusNotFound, false},
	}

	for _, tc := range cases {
		db := &fakeDB{affected: tc.affected}
		e := newTestServer(&middleware.App{DB: db}, self())

		rec := doJSON(e, http.MethodDelete, "/api/users", tc.body)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
		if db.tx == nil || db.tx.committed != tc.commit || db.tx.rolledBack == tc.commit {
			t.Fatalf("%s: unexpected transaction state %+v", tc.name, db.tx)
		}
	}
}
