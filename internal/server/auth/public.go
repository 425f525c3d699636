package auth

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// PublicRoutes decides which routes skip authentication.
//
// Each pattern is either "METHOD /path/glob" or a bare "/path/glob" matching
// any method. Globs use '/' as separator: "*" matches one segment and "**"
// any number of them. gRPC methods are matched by full method name.
type PublicRoutes struct {
	rules []publicRule
}

type publicRule struct {
	method string
	path   glob.Glob
}

func NewPublicRoutes(patterns []string) (*PublicRoutes, error) {
	pr := &PublicRoutes{}
	for _, p := range patterns {
		method, path := "", strings.TrimSpace(p)
		if fields := strings.Fields(path); len(fields) == 2 {
			method, path = strings.ToUpper(fields[0]), fields[1]
		}
		if !strings.HasPrefix(path, "/") {
			return nil, fmt.Errorf("public route %q: path must start with /", p)
		}
		g, err := glob.Compile(path, '/')
		if err != nil {
			return nil, fmt.Errorf("public route %q: %w", p, err)
		}
		pr.rules = append(pr.rules, publicRule{method: method, path: g})
	}
	return pr, nil
}

// IsPublic reports whether method and path match a public pattern. An empty
// method only matches patterns declared without one.
func (pr *PublicRoutes) IsPublic(method, path string) bool {
	if pr == nil {
		return false
	}
	for _, r := range pr.rules {
		if r.method != "" && r.method != method {
			continue
		}
		if r.path.Match(path) {
			return true
		}
	}
	return false
}
