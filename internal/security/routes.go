package security

import (
	"net/http"
	"strings"
)

// routeRule pins a path prefix to a fixed permission, or to the record
// permission implied by the method when perm is empty.
type routeRule struct {
	prefix string
	perm   Permission
	write  Permission
}

// Longest prefixes first; the first match wins.
var routeRules = []routeRule{
	{prefix: "/api/forms/templates", perm: PermReadRecords, write: PermManageForms},
	{prefix: "/api/portal", perm: PermWriteRecords},
	{prefix: "/api/invoices", perm: PermManageInvoices},
	{prefix: "/api/integrations", perm: PermManageIntegrations},
	{prefix: "/api/billing", perm: PermViewBilling},
	{prefix: "/api/team", perm: PermReadRecords, write: PermManageTeam},
}

// Paths any signed-in user may reach, portal clients included.
var unrestricted = []string{"/api/me", "/api/auth/", "/api/notifications", "/ws/notifications"}

// RequiredPermission returns the permission a session needs for method on
// path. The second result is false when the path needs no permission beyond
// a valid session.
func RequiredPermission(method, path string) (Permission, bool) {
	for _, p := range unrestricted {
		if path == p || strings.HasPrefix(path, p+"/") || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return "", false
		}
	}
	if !strings.HasPrefix(path, "/api/") {
		return "", false
	}
	for _, rule := range routeRules {
		if path != rule.prefix && !strings.HasPrefix(path, rule.prefix+"/") {
			continue
		}
		if rule.write != "" && method != http.MethodGet && method != http.MethodHead {
			return rule.write, true
		}
		return rule.perm, true
	}
	return recordPermission(method), true
}

func recordPermission(method string) Permission {
	switch method {
	case http.MethodGet, http.MethodHead:
		return PermReadRecords
	case http.MethodDelete:
		return PermDeleteRecords
	default:
		return PermWriteRecords
	}
}
