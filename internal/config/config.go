// Package config parses operator-supplied catalog connection strings of the
// form [scheme://][user:pass@]host[:port]/database.
package config

import (
	"fmt"
	"regexp"
)

// CatalogURI is one parsed, defaulted catalog connection target.
type CatalogURI struct {
	Scheme   string
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// Addr returns host:port.
func (u CatalogURI) Addr() string {
	return u.Host + ":" + u.Port
}

// String renders the URI back out, defaults filled in.
func (u CatalogURI) String() string {
	cred := ""
	if u.User != "" {
		cred = u.User + ":" + u.Password + "@"
	}
	return fmt.Sprintf("%s://%s%s/%s", u.Scheme, cred, u.Addr(), u.Database)
}

// uriPattern accepts an optional scheme, optional user:pass@ credentials, a
// required host, an optional port, and a required database. The scheme is
// left unconstrained rather than hardcoded to "mongodb" so the same parser
// works against mongos, a single config server, or a test fixture URI.
var uriPattern = regexp.MustCompile(
	`^(?:(?P<scheme>[A-Za-z][A-Za-z0-9+.-]*)://)?` +
		`(?:(?P<user>[^:@/]+):(?P<password>[^:@/]+)@)?` +
		`(?P<host>[^:@/]+)` +
		`(?::(?P<port>\d+))?` +
		`/(?P<database>[^/?]+)$`,
)

// ParseURI parses and defaults one catalog URI. A missing scheme defaults to
// "mongodb"; a missing port defaults to "27017"; the database component is
// required and has no default.
func ParseURI(raw string) (CatalogURI, error) {
	m := uriPattern.FindStringSubmatch(raw)
	if m == nil {
		return CatalogURI{}, fmt.Errorf("config: malformed catalog uri %q", raw)
	}
	groups := namedGroups(uriPattern, m)

	database := groups["database"]
	if database == "" {
		return CatalogURI{}, fmt.Errorf("config: catalog uri %q is missing a database", raw)
	}
	host := groups["host"]
	if host == "" {
		return CatalogURI{}, fmt.Errorf("config: catalog uri %q is missing a host", raw)
	}

	return CatalogURI{
		Scheme:   defaulted(groups["scheme"], "mongodb"),
		User:     groups["user"],
		Password: groups["password"],
		Host:     host,
		Port:     defaulted(groups["port"], "27017"),
		Database: database,
	}, nil
}

func namedGroups(re *regexp.Regexp, match []string) map[string]string {
	result := make(map[string]string, len(match))
	for i, name := range re.SubexpNames() {
		if i != 0 && name != "" {
			result[name] = match[i]
		}
	}
	return result
}

func defaulted(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
