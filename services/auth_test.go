package services

import (
	"testing"
	"time"

	"github.com/lingoleap-app/lingo_api/dto"
)

func newAuthService(t *testing.T) (*AuthService, *PostgresService) {
	t.Helper()
	db := newTestDB(t)
	ds := &PostgresService{db: db}
	jwtSvc := &JWTService{AccessTokenDuration: time.Hour, jwtSecretKey: "test-secret"}
	return &AuthService{sqlSvc: ds, jwtSvc: jwtSvc}, ds
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)

	reg, err := svc.Register(dto.RegisterRequest{
		Email:    "ana@example.com",
		Username: "ana",
		Password: "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.UserID == "" {
		t.Fatal("register returned empty user id")
	}

	login, err := svc.Login(dto.LoginRequest{EmailOrUsername: "ana", Password: "Sup3rSecret"})
	if err != nil {
		t.Fatalf("login by username: %v", err)
	}
	if login.AccessToken == "" || login.UserID != reg.UserID {
		t.Fatalf("bad login response: %+v", login)
	}

	if _, err := svc.Login(dto.LoginRequest{EmailOrUsername: "ana@example.com", Password: "Sup3rSecret"}); err != nil {
		t.Fatalf("login by email: %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Register(dto.RegisterRequest{
		Email:    "ana@example.com",
		Username: "ana",
		Password: "short",
	})
	if err == nil {
		t.Fatal("want validation error for weak password")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newAuthService(t)

	req := dto.RegisterRequest{Email: "ana@example.com", Username: "ana", Password: "Sup3rSecret"}
	if _, err := svc.Register(req); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(req); err == nil {
		t.Fatal("want conflict for duplicate registration")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)

	if _, err := svc.Register(dto.RegisterRequest{
		Email: "ana@example.com", Username: "ana", Password: "Sup3rSecret",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(dto.LoginRequest{EmailOrUsername: "ana", Password: "WrongPass1"}); err == nil {
		t.Fatal("want error for wrong password")
	}
	if _, err := svc.Login(dto.LoginRequest{EmailOrUsername: "nobody", Password: "Sup3rSecret"}); err == nil {
		t.Fatal("want error for unknown user")
	}
}

func TestJWTRoundTrip(t *testing.T) {
	jwtSvc := &JWTService{AccessTokenDuration: time.Hour, jwtSecretKey: "test-secret"}

	token, expiresAt, err := jwtSvc.ToJWT("user-1", "user")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("token already expired")
	}

	claims, err := jwtSvc.VerifyJWTToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "user" {
		t.Fatalf("claims = %+v", claims)
	}

	other := &JWTService{AccessTokenDuration: time.Hour, jwtSecretKey: "another-secret"}
	if _, err := other.VerifyJWTToken(token); err == nil {
		t.Fatal("token verified with wrong secret")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	jwtSvc := &JWTService{}

	if _, err := jwtSvc.ExtractTokenFromHeader(""); err == nil {
		t.Fatal("want error for missing header")
	}
	if _, err := jwtSvc.ExtractTokenFromHeader("Basic abc"); err == nil {
		t.Fatal("want error for non-bearer header")
	}
	token, err := jwtSvc.ExtractTokenFromHeader("Bearer abc.def.ghi")
	if err != nil || token != "abc.def.ghi" {
		t.Fatalf("got (%q, %v)", token, err)
	}
}
