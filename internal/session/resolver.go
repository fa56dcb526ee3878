package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Resolver binds a browser to an opaque session id through a signed cookie.
// The cookie holds an HS256 JWT whose subject is the session id; it carries
// no expiry of its own, the cookie Max-Age bounds it.
type Resolver struct {
	cookieName string
	secret     []byte
	maxAge     time.Duration
	secure     bool
	newID      func() string
}

// NewResolver creates a Resolver. Secure cookies are issued when secure is set.
func NewResolver(cookieName, secret string, maxAge time.Duration, secure bool) *Resolver {
	return &Resolver{
		cookieName: cookieName,
		secret:     []byte(secret),
		maxAge:     maxAge,
		secure:     secure,
		newID:      uuid.NewString,
	}
}

// Resolve returns the request's session id. A missing, tampered or otherwise
// invalid cookie yields a fresh session id and the Set-Cookie header value
// that binds it; setCookie is empty when the existing session was reused.
func (r *Resolver) Resolve(req events.APIGatewayProxyRequest) (sid string, setCookie string, err error) {
	if token := r.cookieValue(req); token != "" {
		if sid, err := r.Parse(token); err == nil {
			return sid, "", nil
		}
	}

	sid = r.newID()
	setCookie, err = r.Issue(sid)
	if err != nil {
		return "", "", err
	}
	return sid, setCookie, nil
}

// Issue signs sid and returns the Set-Cookie header value.
func (r *Resolver) Issue(sid string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  sid,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}

	c := &http.Cookie{
		Name:     r.cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(r.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.secure,
		SameSite: http.SameSiteLaxMode,
	}
	return c.String(), nil
}

// Parse verifies a cookie value and returns the session id it carries.
func (r *Resolver) Parse(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid session cookie: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid session cookie claims")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("invalid session id: %w", err)
	}
	return claims.Subject, nil
}

func (r *Resolver) cookieValue(req events.APIGatewayProxyRequest) string {
	var lines []string
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Cookie") {
			lines = append(lines, v)
		}
	}
	for k, vs := range req.MultiValueHeaders {
		if strings.EqualFold(k, "Cookie") {
			lines = append(lines, vs...)
		}
	}

	for _, line := range lines {
		cookies, err := http.ParseCookie(line)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == r.cookieName {
				return c.Value
			}
		}
	}
	return ""
}
