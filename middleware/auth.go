package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/artcontest/judging-system/models"
	"github.com/artcontest/judging-system/services"
)

// AccessTokenCookie and RefreshTokenCookie are the session cookie names
// written by the auth handlers and read back here.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

type contextKey string

const actorContextKey contextKey = "actor"

var ErrNoActor = errors.New("no actor in request context")

// Auth authenticates requests and exposes role guards. Every guard goes
// through the same Classify call; there is exactly one place that decides
// what a session is allowed to see.
type Auth struct {
	jwtSecret   []byte
	authService services.AuthService
}

func NewAuth(jwtSecret string, authService services.AuthService) *Auth {
	return &Auth{
		jwtSecret:   []byte(jwtSecret),
		authService: authService,
	}
}

// Authenticate resolves the session (cookie or bearer token) to an Actor and
// stores it in the request context. Requests without a valid session proceed
// as Anonymous; the role guards decide whether that is acceptable.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := services.Actor{Kind: services.ActorAnonymous}

		if tokenString := extractToken(r); tokenString != "" {
			if userID, role, err := a.parseClaims(tokenString); err == nil {
				classified, err := a.authService.Classify(r.Context(), userID, role)
				if err != nil {
					http.Error(w, "failed to authorize request", http.StatusInternalServerError)
					return
				}
				actor = classified
			}
		}

		ctx := context.WithValue(r.Context(), actorContextKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects everything but an admin session.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return a.require(next, services.ActorAdmin)
}

// RequireActiveJudge rejects judges that have not completed the welcome
// step; the response carries a redirect hint so the client can route the
// judge to the right screen.
func (a *Auth) RequireActiveJudge(next http.Handler) http.Handler {
	return a.require(next, services.ActorActiveJudge)
}

// RequirePendingJudge admits only judges still on the welcome step. An
// already active judge is pointed back at the dashboard.
func (a *Auth) RequirePendingJudge(next http.Handler) http.Handler {
	return a.require(next, services.ActorPendingJudge)
}

// RequireJudge admits judges in either lifecycle state.
func (a *Auth) RequireJudge(next http.Handler) http.Handler {
	return a.require(next, services.ActorPendingJudge, services.ActorActiveJudge)
}

// RequireAdminOrActiveJudge covers endpoints both roles read, such as the
// entry listing.
func (a *Auth) RequireAdminOrActiveJudge(next http.Handler) http.Handler {
	return a.require(next, services.ActorAdmin, services.ActorActiveJudge)
}

func (a *Auth) require(next http.Handler, kinds ...services.ActorKind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := ActorFromContext(r.Context())
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if actor.Kind == services.ActorAnonymous {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		for _, kind := range kinds {
			if actor.Kind == kind {
				next.ServeHTTP(w, r)
				return
			}
		}

		// A judge on the wrong side of the welcome gate gets a redirect
		// hint instead of a bare 403.
		switch actor.Kind {
		case services.ActorPendingJudge:
			redirectForbidden(w, "/judge/welcome")
		case services.ActorActiveJudge:
			if containsKind(kinds, services.ActorPendingJudge) {
				redirectForbidden(w, "/judge/dashboard")
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			http.Error(w, "Forbidden", http.StatusForbidden)
		}
	})
}

func containsKind(kinds []services.ActorKind, kind services.ActorKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func redirectForbidden(w http.ResponseWriter, location string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprintf(w, `{"error":"forbidden","redirect":%q}`, location)
}

func ActorFromContext(ctx context.Context) (services.Actor, error) {
	actor, ok := ctx.Value(actorContextKey).(services.Actor)
	if !ok {
		return services.Actor{}, ErrNoActor
	}
	return actor, nil
}

// WithActor returns a context carrying the given actor. Tests use it to
// exercise handlers without running the full middleware chain.
func WithActor(ctx context.Context, actor services.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func (a *Auth) parseClaims(tokenString string) (int, models.UserRole, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("unexpected claims type")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat != float64(int(userIDFloat)) || int(userIDFloat) <= 0 {
		return 0, "", errors.New("missing or invalid 'user_id' claim")
	}

	roleStr, ok := claims["role"].(string)
	if !ok {
		return 0, "", errors.New("missing or invalid 'role' claim")
	}
	role := models.UserRole(roleStr)
	if !role.Valid() {
		return 0, "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}

	return int(userIDFloat), role, nil
}
