package hemis

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FoundDomainKey is set on goth raw data to carry the discovered provider host.
const FoundDomainKey = "found_domain"

// Profile is the provider's user record as decoded JSON.
type Profile map[string]interface{}

// DecodeProfile keeps numbers as json.Number so large ids survive intact.
func DecodeProfile(r io.Reader) (Profile, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("profile is not a JSON object")
	}
	return p, nil
}

// String returns the field as trimmed text; numbers and bools are formatted.
func (p Profile) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64, int, int64, bool:
		return fmt.Sprint(t)
	default:
		return ""
	}
}

// First returns the first non-empty value among keys.
func (p Profile) First(keys []string) string {
	for _, k := range keys {
		if s := p.String(k); s != "" {
			return s
		}
	}
	return ""
}

// Aliases is the field resolution order for a profile. Order matters.
type Aliases struct {
	RoleID    map[Role][]string
	Login     []string
	RawID     []string
	FirstName []string
	LastName  []string
	Email     []string
	Avatar    []string
}

func DefaultAliases() Aliases {
	return Aliases{
		RoleID: map[Role][]string{
			RoleStudent:  {"student_id_number"},
			RoleEmployee: {"employee_id_number"},
		},
		Login:     []string{"login", "username"},
		RawID:     []string{"id"},
		FirstName: []string{"firstname", "firstName", "first_name", "name"},
		LastName:  []string{"lastname", "surname", "lastName", "last_name"},
		Email:     []string{"email"},
		Avatar:    []string{"picture", "image", "avatar", "photo", "avatar_url"},
	}
}

// Identity is the normalized view of a profile used for provisioning.
type Identity struct {
	Username   string
	ProviderID string
	FirstName  string
	LastName   string
	Email      string
	AvatarURL  string
	Role       Role
}

// InferRole prefers id fields present in the profile over the login hint.
func InferRole(p Profile, hint Role) Role {
	switch {
	case p.String("employee_id_number") != "":
		return RoleEmployee
	case p.String("student_id_number") != "":
		return RoleStudent
	case hint == RoleEmployee:
		return RoleEmployee
	default:
		return RoleStudent
	}
}

// ResolveIdentity applies the alias tables. domain is the host that issued
// the token; empty falls back to the role default.
func (c Config) ResolveIdentity(p Profile, role Role, domain string) (*Identity, error) {
	a := c.Aliases
	if a.Login == nil && a.RawID == nil && a.RoleID == nil {
		a = DefaultAliases()
	}
	if role == "" {
		role = RoleStudent
	}

	username := p.First(a.RoleID[role])
	if username == "" {
		username = p.First(a.Login)
	}
	rawID := p.First(a.RawID)
	if username == "" && rawID != "" {
		username = string(role) + "_" + rawID
	}
	if username == "" {
		return nil, ErrIdentityUnresolved
	}

	providerID := rawID
	if providerID == "" {
		providerID = username
	}

	if domain == "" {
		domain = c.DefaultDomain(role)
	}

	return &Identity{
		Username:   username,
		ProviderID: providerID,
		FirstName:  p.First(a.FirstName),
		LastName:   p.First(a.LastName),
		Email:      p.First(a.Email),
		AvatarURL:  NormalizeAvatar(p.First(a.Avatar), c.scheme(), domain),
		Role:       role,
	}, nil
}

// NormalizeAvatar keeps absolute URLs and joins relative paths to domain
// with exactly one slash.
func NormalizeAvatar(raw, scheme, domain string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return scheme + ":" + raw
	}
	if domain == "" {
		return raw
	}
	return scheme + "://" + strings.TrimRight(domain, "/") + "/" + strings.TrimLeft(raw, "/")
}
