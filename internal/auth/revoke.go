package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// revokeRemote asks Fitbit to revoke token. x/oauth2 has no revocation
// support, so the RFC 7009 form post is built here with the same client
// authentication the token endpoint uses.
func (s *Service) revokeRemote(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	if !s.confidential {
		form.Set("client_id", s.oauthConfig.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.confidential {
		req.SetBasicAuth(url.QueryEscape(s.oauthConfig.ClientID), url.QueryEscape(s.oauthConfig.ClientSecret))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("revoke returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
