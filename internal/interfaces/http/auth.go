package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	"github.com/ghxstloner/gest-viaticos-panama-backend/pkg/utils"
)

const (
	// TokenKindEmployee marks a reporting-line employee token
	TokenKindEmployee = "employee"
	// TokenKindUser marks a back-office desk account token
	TokenKindUser = "user"

	actorContextKey = "workflow.actor"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// RoleLookup resolves back-office roles by id
type RoleLookup interface {
	RoleByID(id int) (*entity.Role, error)
}

// Claims is the bearer-token payload. The subject carries the person id for
// employees and the numeric account id for desk users.
type Claims struct {
	Kind           string   `json:"kind"`
	Name           string   `json:"name,omitempty"`
	DepartmentID   int64    `json:"department_id,omitempty"`
	DepartmentHead bool     `json:"department_head,omitempty"`
	Permissions    []string `json:"permissions,omitempty"`
	RoleID         int      `json:"role_id,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and builds workflow actors
type Authenticator struct {
	secret []byte
	issuer string
	roles  RoleLookup
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. An empty issuer accepts any issuer.
func NewAuthenticator(secret, issuer string, roles RoleLookup) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		issuer: issuer,
		roles:  roles,
		now:    time.Now,
	}
}

// Issue signs claims with the shared secret
func (a *Authenticator) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := a.now()
	if claims.Issuer == "" {
		claims.Issuer = a.issuer
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Parse verifies the token and converts its claims to an actor
func (a *Authenticator) Parse(raw string) (entity.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidToken, err)
	}
	return a.actorFrom(&claims)
}

func (a *Authenticator) actorFrom(claims *Claims) (entity.Actor, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject is empty", errInvalidToken)
	}

	switch claims.Kind {
	case TokenKindEmployee:
		if err := utils.ValidatePersonID(claims.Subject); err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidToken, err)
		}
		return &entity.Employee{
			PersonIDNumber:   claims.Subject,
			Name:             claims.Name,
			DepartmentID:     claims.DepartmentID,
			IsDepartmentHead: claims.DepartmentHead,
			Permissions:      append([]string(nil), claims.Permissions...),
		}, nil
	case TokenKindUser:
		accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: account id %q", errInvalidToken, claims.Subject)
		}
		role, err := a.roles.RoleByID(claims.RoleID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidToken, err)
		}
		return &entity.BackOfficeUser{
			AccountID: accountID,
			Username:  claims.Name,
			Role:      *role,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", errInvalidToken, claims.Kind)
	}
}

// Middleware rejects requests without a valid bearer token and stores the
// resolved actor on the gin context
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var actor entity.Actor
			actor, err = a.Parse(raw)
			if err == nil {
				c.Set(actorContextKey, actor)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   err.Error(),
		})
	}
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// ActorFrom returns the actor stored by the auth middleware
func ActorFrom(c *gin.Context) (entity.Actor, bool) {
	v, ok := c.Get(actorContextKey)
	if !ok {
		return nil, false
	}
	actor, ok := v.(entity.Actor)
	return actor, ok
}
