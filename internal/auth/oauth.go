package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/sakif/listmate/internal/apperror"
	"github.com/sakif/listmate/internal/model"
)

// profileFields names the JSON keys of a provider's user-info response.
type profileFields struct {
	uid   string
	name  string
	login string // fallback when name is empty
	email string
}

type providerDef struct {
	endpoint    oauth2.Endpoint
	scopes      []string
	userInfoURL string
	emailsURL   string
	fields      profileFields
}

var knownProviders = map[string]providerDef{
	"github": {
		endpoint:    endpoints.GitHub,
		scopes:      []string{"read:user", "user:email"},
		userInfoURL: "https://api.github.com/user",
		emailsURL:   "https://api.github.com/user/emails",
		fields:      profileFields{uid: "id", name: "name", login: "login", email: "email"},
	},
	"facebook": {
		endpoint:    endpoints.Facebook,
		scopes:      []string{"email", "public_profile"},
		userInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		fields:      profileFields{uid: "id", name: "name", email: "email"},
	},
	"google": {
		endpoint:    endpoints.Google,
		scopes:      []string{"openid", "profile", "email"},
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		fields:      profileFields{uid: "sub", name: "name", email: "email"},
	},
}

// Provider runs the authorization-code flow against one OAuth provider
// and turns the provider's profile into a model.OAuthAssertion.
type Provider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
	// EmailsURL is consulted when the profile has no email (GitHub hides
	// it unless the user made it public).
	EmailsURL string

	fields profileFields
}

// NewProvider configures one of the known providers: github, facebook or
// google.
func NewProvider(name, clientID, clientSecret, callbackURL string) (*Provider, error) {
	def, ok := knownProviders[name]
	if !ok {
		return nil, fmt.Errorf("auth: unknown OAuth provider %q", name)
	}
	return &Provider{
		Name: name,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       def.scopes,
			Endpoint:     def.endpoint,
		},
		UserInfoURL: def.userInfoURL,
		EmailsURL:   def.emailsURL,
		fields:      def.fields,
	}, nil
}

// AuthURL is where the login handler redirects the browser.
func (p *Provider) AuthURL(state string) string {
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for an access token and reads the
// user's profile with it.
func (p *Provider) Exchange(ctx context.Context, code string) (*model.OAuthAssertion, error) {
	token, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging %s OAuth code: %w", p.Name, err)
	}
	client := p.Config.Client(ctx, token)

	var profile map[string]any
	if err := p.getJSON(client, p.UserInfoURL, &profile); err != nil {
		return nil, err
	}

	uid := stringField(profile, p.fields.uid)
	if uid == "" || uid == "0" {
		return nil, fmt.Errorf("auth: %s returned a profile without %s", p.Name, p.fields.uid)
	}

	name := stringField(profile, p.fields.name)
	if name == "" && p.fields.login != "" {
		name = stringField(profile, p.fields.login)
	}

	email := stringField(profile, p.fields.email)
	if email == "" && p.EmailsURL != "" {
		email, err = p.primaryEmail(client)
		if err != nil {
			return nil, err
		}
	}

	return &model.OAuthAssertion{
		Provider: p.Name,
		UID:      uid,
		Info:     model.OAuthInfo{Name: name, Email: email},
	}, nil
}

// primaryEmail returns the primary verified address from a GitHub-style
// emails listing, or "" if there is none.
func (p *Provider) primaryEmail(client *http.Client) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(client, p.EmailsURL, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (p *Provider) getJSON(client *http.Client, url string, dst any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("auth: calling %s profile API: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: %s profile API returned status %d", p.Name, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("auth: decoding %s profile response: %w", p.Name, err)
	}
	return nil
}

// stringField reads key as a string. Numeric ids (GitHub) keep their
// decimal form.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Providers indexes the enabled providers by name.
type Providers map[string]*Provider

func (ps Providers) Get(name string) (*Provider, error) {
	p, ok := ps[name]
	if !ok {
		return nil, apperror.NotFound("oauth provider", name)
	}
	return p, nil
}

// Names lists the enabled providers in sorted order.
func (ps Providers) Names() []string {
	names := make([]string, 0, len(ps))
	for name := range ps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
