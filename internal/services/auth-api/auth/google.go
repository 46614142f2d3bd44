package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/NordCoder/fintrack/internal/obs/retry"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

var googleScopes = []string{"openid", "email", "profile"}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Optional endpoint overrides, used against a fake provider in tests.
	AuthURL     string
	TokenURL    string
	UserInfoURL string
}

type GoogleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
	client      *http.Client
}

var _ Provider = (*GoogleProvider)(nil)

func NewGoogleProvider(cfg GoogleConfig, client *http.Client) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	userInfo := cfg.UserInfoURL
	if userInfo == "" {
		userInfo = googleUserInfoURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       googleScopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfo,
		client:      client,
	}
}

func (g *GoogleProvider) AuthCodeURL(state, verifier string) string {
	return g.conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (g *GoogleProvider) Identify(ctx context.Context, code, verifier string) (Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)

	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	tok, err := g.conf.Exchange(ctx, code, opts...)
	if err != nil {
		return Identity{}, classifyExchange(err)
	}

	var id Identity
	err = retry.Do(ctx, func() error {
		var err error
		id, err = g.userInfo(ctx, tok)
		return err
	}, retry.ProviderPolicy("google_userinfo", func(err error) bool {
		return errors.Is(err, ErrProviderUnavailable)
	}))
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, ErrUserInfoUnavailable), errors.Is(err, ErrProviderUnavailable):
		return Identity{}, err
	default:
		return Identity{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
}

func (g *GoogleProvider) userInfo(ctx context.Context, tok *oauth2.Token) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUserInfoUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Identity{}, fmt.Errorf("%w: userinfo status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: userinfo status %d", ErrUserInfoUnavailable, resp.StatusCode)
	}

	var body struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Identity{}, fmt.Errorf("%w: decode userinfo: %v", ErrUserInfoUnavailable, err)
	}
	if body.Email == "" {
		return Identity{}, fmt.Errorf("%w: no email in userinfo", ErrUserInfoUnavailable)
	}
	return Identity{Subject: body.Sub, Email: body.Email}, nil
}

func classifyExchange(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.Response != nil && re.Response.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: token endpoint status %d", ErrProviderUnavailable, re.Response.StatusCode)
		}
		return fmt.Errorf("%w: %s", ErrCodeExchange, re.ErrorCode)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
