// Package auth verifies request identity and carries the acting user through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JaimeStill/countersign/pkg/handlers"
)

var (
	// ErrMissingToken indicates a request without credentials.
	ErrMissingToken = errors.New("missing credentials")
	// ErrInvalidToken indicates credentials that failed verification.
	ErrInvalidToken = errors.New("invalid credentials")
)

// Verifier resolves a raw credential to an actor identity.
type Verifier interface {
	Verify(ctx context.Context, raw string) (uuid.UUID, error)
}

type actorKey struct{}

// WithActor returns a context carrying the acting user ID.
func WithActor(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFrom returns the acting user ID stored by the middleware.
func ActorFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok
}

// Authenticator extracts and verifies credentials for a configured mode.
type Authenticator struct {
	verifier Verifier
	header   string
}

// New builds the Authenticator for cfg.Mode.
func New(ctx context.Context, cfg *Config) (*Authenticator, error) {
	a := &Authenticator{}

	switch cfg.Mode {
	case ModeHeader:
		a.verifier = HeaderVerifier{}
		a.header = cfg.ActorHeader
	case ModeHMAC:
		a.verifier = NewHMAC([]byte(cfg.Secret), cfg.Issuer)
	case ModeOIDC:
		a.verifier = NewOIDC(ctx, cfg.Issuer, cfg.JWKSURL, cfg.Audience)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}

	return a, nil
}

// Middleware rejects unauthenticated requests with 401 and stores the actor in the context.
func (a *Authenticator) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("middleware", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := a.credential(r)
			if raw == "" {
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrMissingToken)
				return
			}

			actor, err := a.verifier.Verify(r.Context(), raw)
			if err != nil {
				logger.Debug("credential rejected", "error", err)
				handlers.RespondError(w, logger, http.StatusUnauthorized, ErrInvalidToken)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func (a *Authenticator) credential(r *http.Request) string {
	if a.header != "" {
		return strings.TrimSpace(r.Header.Get(a.header))
	}

	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// HeaderVerifier accepts the raw value as the actor ID.
type HeaderVerifier struct{}

func (HeaderVerifier) Verify(_ context.Context, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// Claims carries the actor ID in the registered subject claim.
type Claims struct {
	jwt.RegisteredClaims
}

// HMAC issues and verifies HS256 tokens.
type HMAC struct {
	secret []byte
	issuer string
}

// NewHMAC creates an HS256 verifier. An empty issuer disables the issuer check.
func NewHMAC(secret []byte, issuer string) *HMAC {
	return &HMAC{secret: secret, issuer: issuer}
}

// Issue signs a token for actor valid for ttl.
func (h *HMAC) Issue(actor uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.String(),
			Issuer:    h.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(h.secret)
}

func (h *HMAC) Verify(_ context.Context, raw string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if h.issuer != "" {
		opts = append(opts, jwt.WithIssuer(h.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return subjectID(claims.Subject)
}

// OIDC verifies ID tokens against a remote JWKS.
type OIDC struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDC creates a verifier for issuer using keys fetched from jwksURL.
// An empty audience skips the client ID check.
func NewOIDC(ctx context.Context, issuer, jwksURL, audience string) *OIDC {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return &OIDC{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			ClientID:          audience,
			SkipClientIDCheck: audience == "",
		}),
	}
}

func (o *OIDC) Verify(ctx context.Context, raw string) (uuid.UUID, error) {
	token, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return subjectID(token.Subject)
}

func subjectID(sub string) (uuid.UUID, error) {
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id, nil
}
