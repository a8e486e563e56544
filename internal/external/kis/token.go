package kis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/httputil"
	"github.com/wonny/stockpick/pkg/logger"
)

const (
	tokenPath = "/oauth2/tokenP"

	// 만료 1분 전에 갱신
	tokenSkew = time.Minute
)

// tokenSource caches the OAuth access token.
// Concurrent callers that find it expired share a single refresh.
type tokenSource struct {
	http   *httputil.Client
	cfg    config.KISConfig
	logger *logger.Logger
	now    func() time.Time

	mu      sync.RWMutex
	token   string
	expires time.Time

	group singleflight.Group
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *tokenSource) cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || !s.now().Before(s.expires) {
		return "", false
	}
	return s.token, true
}

// Token returns a valid access token, refreshing it when expired
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := s.cached(); ok {
		return tok, nil
	}

	v, err, _ := s.group.Do("token", func() (interface{}, error) {
		if tok, ok := s.cached(); ok {
			return tok, nil
		}
		return s.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *tokenSource) refresh(ctx context.Context) (string, error) {
	resp, err := s.http.PostJSON(ctx, s.cfg.BaseURL+tokenPath, map[string]string{
		"grant_type": "client_credentials",
		"appkey":     s.cfg.AppKey,
		"appsecret":  s.cfg.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request: status %d: %s", resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("token response without access_token")
	}

	s.mu.Lock()
	s.token = tr.AccessToken
	s.expires = s.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenSkew)
	s.mu.Unlock()

	s.logger.WithField("expires_in", tr.ExpiresIn).Info("KIS access token refreshed")
	return tr.AccessToken, nil
}
