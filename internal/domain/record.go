package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Namespace string

const (
	NamespaceRoster       Namespace = "roster"
	NamespaceRosterByRole Namespace = "roster-by-role"
	NamespaceHeroDetail   Namespace = "entity-detail"
)

func (n Namespace) String() string {
	return string(n)
}

func (n Namespace) IsValid() bool {
	switch n {
	case NamespaceRoster, NamespaceRosterByRole, NamespaceHeroDetail:
		return true
	default:
		return false
	}
}

// CacheKey identifies one cached record. ID is the role name, the hero name,
// or empty for the full roster.
type CacheKey struct {
	Namespace Namespace `json:"namespace"`
	ID        string    `json:"id"`
}

func RosterKey() CacheKey {
	return CacheKey{Namespace: NamespaceRoster}
}

func RoleKey(role string) CacheKey {
	return CacheKey{Namespace: NamespaceRosterByRole, ID: role}
}

func HeroKey(name string) CacheKey {
	return CacheKey{Namespace: NamespaceHeroDetail, ID: name}
}

// String is the opaque storage form, "namespace:id".
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s", k.Namespace, k.ID)
}

// ParseCacheKey is the inverse of CacheKey.String.
func ParseCacheKey(raw string) (CacheKey, error) {
	ns, id, found := strings.Cut(raw, ":")
	if !found {
		return CacheKey{}, fmt.Errorf("malformed cache key %q", raw)
	}
	key := CacheKey{Namespace: Namespace(ns), ID: id}
	if !key.Namespace.IsValid() {
		return CacheKey{}, fmt.Errorf("unknown namespace %q", ns)
	}
	return key, nil
}

// CacheRecord is the unit persisted by stores and returned to API callers.
// LastUpdate is when the payload was produced, never when it was read or written.
type CacheRecord struct {
	Key        CacheKey        `json:"key"`
	LastUpdate time.Time       `json:"lastUpdate"`
	Roster     *RosterSnapshot `json:"roster,omitempty"`
	Detail     *EntityDetail   `json:"detail,omitempty"`
}

// HasPayload reports whether the record carries data. A record without payload is
// treated the same as a missing entry.
func (r *CacheRecord) HasPayload() bool {
	return r != nil && (r.Roster != nil || r.Detail != nil)
}

// Age returns how old the payload is relative to now.
func (r *CacheRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.LastUpdate)
}

// IsFresh reports whether the record may be served without a refresh.
func (r *CacheRecord) IsFresh(now time.Time, staleAfter time.Duration) bool {
	return r.HasPayload() && r.Age(now) <= staleAfter
}

type FetchKind string

const (
	FetchKindRoster FetchKind = "roster"
	FetchKindDetail FetchKind = "detail"
)

func (k FetchKind) String() string {
	return string(k)
}

// FetchTarget tells the page extractor what to render and how to read it.
type FetchTarget struct {
	URL  string
	Kind FetchKind
	Role string
}

// RenderURL returns the URL with the role filter appended as a query parameter.
func (t FetchTarget) RenderURL() (string, error) {
	if t.Role == "" {
		return t.URL, nil
	}

	u, err := url.Parse(t.URL)
	if err != nil {
		return "", fmt.Errorf("invalid target url %q: %w", t.URL, err)
	}
	q := u.Query()
	q.Set("role", t.Role)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Extraction is the raw output of a page extraction, before it is stamped into a record.
type Extraction struct {
	Roster *RosterSnapshot
	Detail *EntityDetail
}

func (e *Extraction) IsEmpty() bool {
	if e == nil {
		return true
	}
	if e.Detail != nil {
		return e.Detail.IsEmpty()
	}
	return e.Roster.IsEmpty()
}
