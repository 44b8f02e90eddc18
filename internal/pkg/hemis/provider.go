package hemis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/markbates/goth"
	"golang.org/x/oauth2"
)

// Provider names registered with goth.
const (
	ProviderStudent = "hemis-student"
	ProviderStaff   = "hemis-staff"
)

// RoleForProvider maps a goth provider name back to the role hint.
func RoleForProvider(name string) Role {
	if name == ProviderStaff {
		return RoleEmployee
	}
	return RoleStudent
}

// Provider adapts the broker to goth so the browser redirect flow shares
// the same endpoint search and profile handling.
type Provider struct {
	name   string
	role   Role
	broker *Broker
}

func NewProvider(name string, role Role, broker *Broker) *Provider {
	return &Provider{name: name, role: role, broker: broker}
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) SetName(name string) {
	p.name = name
}

func (p *Provider) Debug(bool) {}

func (p *Provider) BeginAuth(state string) (goth.Session, error) {
	return &Session{
		AuthURL: p.broker.AuthURL(p.role, state),
		Role:    p.role,
	}, nil
}

func (p *Provider) UnmarshalSession(data string) (goth.Session, error) {
	s := &Session{}
	err := json.NewDecoder(strings.NewReader(data)).Decode(s)
	return s, err
}

// FetchUser loads the profile and fills the goth user. RawData carries the
// profile plus FoundDomainKey.
func (p *Provider) FetchUser(session goth.Session) (goth.User, error) {
	s, ok := session.(*Session)
	if !ok {
		return goth.User{}, errors.New("hemis: unexpected session type")
	}
	user := goth.User{
		Provider:    p.name,
		AccessToken: s.AccessToken,
	}
	if s.AccessToken == "" {
		return user, fmt.Errorf("%s cannot get user information without accessToken", p.name)
	}

	profile, err := p.broker.FetchProfile(context.Background(), s.AccessToken, s.Domain)
	if err != nil {
		return user, err
	}

	raw := make(map[string]interface{}, len(profile)+1)
	for k, v := range profile {
		raw[k] = v
	}
	raw[FoundDomainKey] = s.Domain
	user.RawData = raw

	identity, err := p.broker.Config().ResolveIdentity(profile, InferRole(profile, p.role), s.Domain)
	if err != nil {
		return user, err
	}
	user.UserID = identity.ProviderID
	user.NickName = identity.Username
	user.FirstName = identity.FirstName
	user.LastName = identity.LastName
	user.Name = strings.TrimSpace(identity.FirstName + " " + identity.LastName)
	user.Email = identity.Email
	user.AvatarURL = identity.AvatarURL
	return user, nil
}

func (p *Provider) RefreshToken(string) (*oauth2.Token, error) {
	return nil, errors.New("refresh token is not provided by hemis")
}

func (p *Provider) RefreshTokenAvailable() bool {
	return false
}

// Session is the goth session for a Hemis login.
type Session struct {
	AuthURL     string
	AccessToken string
	Domain      string
	Role        Role
}

func (s *Session) GetAuthURL() (string, error) {
	if s.AuthURL == "" {
		return "", errors.New(goth.NoAuthUrlErrorMessage)
	}
	return s.AuthURL, nil
}

func (s *Session) Marshal() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Authorize runs the token exchange for the callback code.
func (s *Session) Authorize(provider goth.Provider, params goth.Params) (string, error) {
	p, ok := provider.(*Provider)
	if !ok {
		return "", errors.New("hemis: unexpected provider type")
	}
	tok, err := p.broker.Exchange(context.Background(), params.Get("code"))
	if err != nil {
		return "", err
	}
	s.AccessToken = tok.AccessToken
	s.Domain = tok.Domain
	return s.AccessToken, nil
}

// DomainFromUser returns the provider host recorded by FetchUser.
func DomainFromUser(u goth.User) string {
	if u.RawData == nil {
		return ""
	}
	d, _ := u.RawData[FoundDomainKey].(string)
	return d
}

// ProfileFromUser strips bookkeeping keys from the goth raw data.
func ProfileFromUser(u goth.User) Profile {
	p := make(Profile, len(u.RawData))
	for k, v := range u.RawData {
		if k == FoundDomainKey {
			continue
		}
		p[k] = v
	}
	return p
}
