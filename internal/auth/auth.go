package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the caller behind a verified request.
type Identity struct {
	UserID string
	Admin  bool
}

// Verifier turns an incoming request into an Identity.
type Verifier interface {
	Verify(ctx context.Context, r *http.Request) (Identity, error)
}

// IDTokenVerifier is satisfied by *fbauth.Client.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens passed as bearer tokens. The
// custom claim "admin": true grants access to the admin API.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

func NewFirebaseVerifier(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, r *http.Request) (Identity, error) {
	idToken, err := bearerToken(r)
	if err != nil {
		return Identity{}, err
	}

	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	uid := strings.TrimSpace(token.UID)
	if uid == "" {
		return Identity{}, fmt.Errorf("%w: empty uid", ErrInvalidToken)
	}

	admin, _ := token.Claims["admin"].(bool)
	return Identity{UserID: uid, Admin: admin}, nil
}

// HeaderVerifier trusts X-User-ID and X-Admin. Local development only.
type HeaderVerifier struct{}

func (HeaderVerifier) Verify(_ context.Context, r *http.Request) (Identity, error) {
	uid := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if uid == "" {
		return Identity{}, ErrMissingToken
	}
	admin, _ := strconv.ParseBool(r.Header.Get("X-Admin"))
	return Identity{UserID: uid, Admin: admin}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}
