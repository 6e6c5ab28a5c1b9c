package credentials

import (
	"context"
	"strings"

	"github.com/spf13/viper"

	"romsift/internal/retroachievements"
	"romsift/internal/services"
)

// EnvPrefix is the environment prefix read by Env.
const EnvPrefix = "RETROACHIEVEMENTS"

// Provider supplies credentials. A provider may return a partial pair; the
// fetcher rejects incomplete credentials before any request.
type Provider interface {
	Credentials(ctx context.Context) (retroachievements.Credentials, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (retroachievements.Credentials, error)

func (f ProviderFunc) Credentials(ctx context.Context) (retroachievements.Credentials, error) {
	return f(ctx)
}

// Static returns fixed credentials.
type Static retroachievements.Credentials

func (s Static) Credentials(context.Context) (retroachievements.Credentials, error) {
	return retroachievements.Credentials{
		Username: strings.TrimSpace(s.Username),
		APIKey:   strings.TrimSpace(s.APIKey),
	}, nil
}

// Env reads credentials from the process environment through viper.
type Env struct {
	v *viper.Viper
}

// NewEnv binds RETROACHIEVEMENTS_USERNAME and RETROACHIEVEMENTS_API_KEY.
func NewEnv() *Env {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return &Env{v: v}
}

func (e *Env) Credentials(context.Context) (retroachievements.Credentials, error) {
	return retroachievements.Credentials{
		Username: strings.TrimSpace(e.v.GetString("username")),
		APIKey:   strings.TrimSpace(e.v.GetString("api_key")),
	}, nil
}

// Chain consults providers in order and fills each field from the first
// provider that supplies it. It stops early once both fields are known.
type Chain []Provider

func (c Chain) Credentials(ctx context.Context) (retroachievements.Credentials, error) {
	var out retroachievements.Credentials
	for _, p := range c {
		if p == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if prompt, ok := p.(*Prompt); ok {
			prompt.known = out
		}
		creds, err := p.Credentials(ctx)
		if err != nil {
			return out, err
		}
		if out.Username == "" {
			out.Username = creds.Username
		}
		if out.APIKey == "" {
			out.APIKey = creds.APIKey
		}
		if out.Complete() {
			return out, nil
		}
	}
	return out, nil
}

// Require resolves credentials and fails with ErrAuth when either field is missing.
func Require(ctx context.Context, p Provider) (retroachievements.Credentials, error) {
	if p == nil {
		return retroachievements.Credentials{}, services.Wrap(services.ErrAuth, "credentials", "resolve", "no credential provider configured", nil)
	}
	creds, err := p.Credentials(ctx)
	if err != nil {
		return creds, err
	}
	switch {
	case creds.Username == "" && creds.APIKey == "":
		return creds, services.Wrap(services.ErrAuth, "credentials", "resolve", "username and api key are required", nil)
	case creds.Username == "":
		return creds, services.Wrap(services.ErrAuth, "credentials", "resolve", "username is required", nil)
	case creds.APIKey == "":
		return creds, services.Wrap(services.ErrAuth, "credentials", "resolve", "api key is required", nil)
	}
	return creds, nil
}
