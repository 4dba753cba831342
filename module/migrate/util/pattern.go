package util

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"

	"github.com/harness/package-migrator/module/migrate/types"
)

/* Patterns support * and ** wildcards:
- * matches within one name segment ("@scope/*" does not cross a slash)
- ** matches across segments
*/

func MatchesPattern(name string, patterns []string) bool {
	for _, pattern := range patterns {
		// Validate pattern - only * and ** wildcards are supported
		if containsUnsupportedWildcards(pattern) {
			log.Warn().Str("pattern", pattern).Msg("Pattern contains unsupported wildcard characters, only * and ** are supported")
			continue
		}

		g, err := glob.Compile(pattern, '/')
		if err != nil {
			log.Warn().Err(err).Str("pattern", pattern).Msg("Invalid pattern")
			continue
		}
		if g.Match(name) {
			return true
		}
	}
	return false
}

// containsUnsupportedWildcards checks if pattern contains unsupported wildcard characters
// Only * and ** are supported. Characters like ?, [, ], {, } are not supported.
func containsUnsupportedWildcards(pattern string) bool {
	return strings.ContainsAny(pattern, "?[]{}")
}

// FilterPackagesByPatterns keeps packages matching any include pattern (all
// when there are none) and then drops those matching an exclude pattern.
func FilterPackagesByPatterns(packages []types.Package, includePatterns, excludePatterns []string) []types.Package {
	if len(includePatterns) == 0 && len(excludePatterns) == 0 {
		return packages
	}

	filtered := make([]types.Package, 0, len(packages))
	for _, pkg := range packages {
		if len(includePatterns) > 0 && !MatchesPattern(pkg.Name, includePatterns) {
			continue
		}
		if MatchesPattern(pkg.Name, excludePatterns) {
			continue
		}
		filtered = append(filtered, pkg)
	}
	return filtered
}
