package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/registry"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuthenticator() *Authenticator {
	return NewAuthenticator(testSecret, "viaticos-test", registry.MustDefault())
}

func TestAuthenticator_Employee(t *testing.T) {
	auth := newTestAuthenticator()

	token, err := auth.Issue(Claims{
		Kind:           TokenKindEmployee,
		Name:           "Ana Pérez",
		DepartmentID:   12,
		DepartmentHead: true,
		Permissions:    []string{entity.PermMissionApprove},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "8-123-456",
		},
	}, time.Hour)
	require.NoError(t, err)

	actor, err := auth.Parse(token)
	require.NoError(t, err)

	emp, ok := actor.(*entity.Employee)
	require.True(t, ok)
	assert.Equal(t, "8-123-456", emp.PersonIDNumber)
	assert.Equal(t, int64(12), emp.DepartmentID)
	assert.True(t, emp.IsDepartmentHead)
	assert.True(t, emp.HasPermission(entity.PermMissionApprove))
}

func TestAuthenticator_UserResolvesRole(t *testing.T) {
	auth := newTestAuthenticator()

	token, err := auth.Issue(Claims{
		Kind:             TokenKindUser,
		Name:             "tesoreria1",
		RoleID:           2,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
	}, time.Hour)
	require.NoError(t, err)

	actor, err := auth.Parse(token)
	require.NoError(t, err)

	user, ok := actor.(*entity.BackOfficeUser)
	require.True(t, ok)
	assert.Equal(t, int64(42), user.AccountID)
	assert.Equal(t, "TESORERIA", user.Role.Name)
	assert.True(t, user.HasPermission(entity.PermMissionTreasuryApprove))
}

func TestAuthenticator_Rejects(t *testing.T) {
	auth := newTestAuthenticator()

	sign := func(method jwt.SigningMethod, key interface{}, claims Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := Claims{
		Kind: TokenKindEmployee,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "8-1-1",
			Issuer:  "viaticos-test",
		},
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"

	unknownKind := valid
	unknownKind.Kind = "robot"

	badAccount := valid
	badAccount.Kind = TokenKindUser
	badAccount.RoleID = 2
	badAccount.Subject = "not-a-number"

	unknownRole := valid
	unknownRole.Kind = TokenKindUser
	unknownRole.Subject = "7"
	unknownRole.RoleID = 999

	badPersonID := valid
	badPersonID.Subject = "juan"

	noSubject := valid
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret-another-secret-00"), valid)},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, []byte(testSecret), valid)},
		{"expired", sign(jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer)},
		{"unknown kind", sign(jwt.SigningMethodHS256, []byte(testSecret), unknownKind)},
		{"non numeric account", sign(jwt.SigningMethodHS256, []byte(testSecret), badAccount)},
		{"unknown role", sign(jwt.SigningMethodHS256, []byte(testSecret), unknownRole)},
		{"malformed person id", sign(jwt.SigningMethodHS256, []byte(testSecret), badPersonID)},
		{"no subject", sign(jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{"garbage", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Parse(tt.token)
			assert.ErrorIs(t, err, errInvalidToken)
		})
	}
}

func TestAuthenticator_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuthenticator()

	router := gin.New()
	router.GET("/whoami", auth.Middleware(), func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, actor.ID())
	})

	token, err := auth.Issue(Claims{
		Kind:             TokenKindEmployee,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "8-9-10"},
	}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"tampered", "Bearer " + token + "x", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "8-9-10", w.Body.String())
			}
		})
	}
}
