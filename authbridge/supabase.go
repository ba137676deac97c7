package authbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/princinho/smartshop/utils"
)

// SupabaseProvider talks to the GoTrue REST API of a Supabase project.
type SupabaseProvider struct {
	baseURL   string
	apiKey    string
	jwtSecret string
	client    *http.Client
}

func NewSupabaseProvider(projectURL, apiKey, jwtSecret string) *SupabaseProvider {
	return &SupabaseProvider{
		baseURL:   strings.TrimRight(projectURL, "/") + "/auth/v1",
		apiKey:    apiKey,
		jwtSecret: jwtSecret,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type gotrueSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int        `json:"expires_in"`
	User         gotrueUser `json:"user"`
}

// supabaseAudience is the "aud" claim GoTrue puts on signed-in users' tokens.
const supabaseAudience = "authenticated"

type gotrueError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	Desc      string `json:"error_description"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Desc, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

// apiError is a non-2xx GoTrue response.
type apiError struct {
	method, path string
	status       int
	body         gotrueError
}

func (e *apiError) Error() string {
	return fmt.Sprintf("supabase %s %s: %d %s", e.method, e.path, e.status, e.body.text())
}

// signupError picks the bridge sentinel for a rejected signup. Newer GoTrue
// versions send error_code; older ones only a message.
func signupError(err error) error {
	var ae *apiError
	if !errors.As(err, &ae) {
		return err
	}
	text := strings.ToLower(ae.body.text())
	switch {
	case ae.body.ErrorCode == "user_already_exists", ae.body.ErrorCode == "email_exists",
		strings.Contains(text, "already registered"), strings.Contains(text, "already exists"):
		return fmt.Errorf("%w: %v", ErrEmailTaken, err)
	case ae.body.ErrorCode == "weak_password", strings.Contains(text, "password"):
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	default:
		return classify(ae.status, err, ErrInvalidCredentials)
	}
}

func (p *SupabaseProvider) do(ctx context.Context, method, path, accessToken string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if accessToken == "" {
		accessToken = p.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		ae := &apiError{method: method, path: path, status: resp.StatusCode}
		_ = json.Unmarshal(raw, &ae.body)
		return resp.StatusCode, ae
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode supabase response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// classify maps client errors onto the bridge sentinels and leaves the
// original text in the chain for the logs.
func classify(status int, err error, clientErr error) error {
	if err == nil {
		return nil
	}
	if status >= 400 && status < 500 {
		return fmt.Errorf("%w: %v", clientErr, err)
	}
	if status >= 500 {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// GetUser verifies the token locally when the project JWT secret is known
// and asks GoTrue otherwise.
func (p *SupabaseProvider) GetUser(ctx context.Context, accessToken string) (*Identity, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	if p.jwtSecret != "" {
		claims, err := utils.ValidateToken(accessToken, p.jwtSecret, jwt.WithAudience(supabaseAudience))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return &Identity{ID: claims.Subject, Email: claims.Email}, nil
	}

	var u gotrueUser
	status, err := p.do(ctx, http.MethodGet, "/user", accessToken, nil, &u)
	if err != nil {
		return nil, classify(status, err, ErrInvalidToken)
	}
	if u.ID == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{ID: u.ID, Email: u.Email}, nil
}

func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s gotrueSession
	body := map[string]string{"email": email, "password": password}
	status, err := p.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &s)
	if err != nil {
		return nil, classify(status, err, ErrInvalidCredentials)
	}
	return toSession(s), nil
}

// SignUp returns a session without tokens when the project requires email
// confirmation.
func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var raw json.RawMessage
	body := map[string]string{"email": email, "password": password}
	status, err := p.do(ctx, http.MethodPost, "/signup", "", body, &raw)
	if err != nil {
		if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
			return nil, signupError(err)
		}
		return nil, classify(status, err, ErrInvalidCredentials)
	}

	var s gotrueSession
	if err := json.Unmarshal(raw, &s); err == nil && s.AccessToken != "" {
		return toSession(s), nil
	}
	var u gotrueUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	return &Session{User: Identity{ID: u.ID, Email: u.Email}}, nil
}

func (p *SupabaseProvider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	status, err := p.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
	return classify(status, err, ErrInvalidToken)
}

func (p *SupabaseProvider) ResetPassword(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	status, err := p.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil)
	return classify(status, err, ErrInvalidCredentials)
}

func (p *SupabaseProvider) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	if accessToken == "" {
		return ErrInvalidToken
	}
	status, err := p.do(ctx, http.MethodPut, "/user", accessToken, map[string]string{"password": newPassword}, nil)
	return classify(status, err, ErrInvalidToken)
}

func toSession(s gotrueSession) *Session {
	return &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		User:         Identity{ID: s.User.ID, Email: s.User.Email},
	}
}
