package util

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harness/package-migrator/module/migrate/types"
)

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name     string
		pkg      string
		patterns []string
		want     bool
	}{
		{name: "no patterns", pkg: "left-pad", want: false},
		{name: "prefix", pkg: "left-pad", patterns: []string{"left-*"}, want: true},
		{name: "single star stays in segment", pkg: "team/app", patterns: []string{"*"}, want: false},
		{name: "double star crosses segments", pkg: "team/app", patterns: []string{"**"}, want: true},
		{name: "unsupported wildcard ignored", pkg: "left-pad", patterns: []string{"left-pa?"}, want: false},
		{name: "any of several", pkg: "is-odd", patterns: []string{"left-*", "is-*"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPattern(tt.pkg, tt.patterns))
		})
	}
}

func TestFilterPackagesByPatterns(t *testing.T) {
	pkgs := []types.Package{{Name: "left-pad"}, {Name: "left-pad-legacy"}, {Name: "is-odd"}}

	assert.Equal(t, pkgs, FilterPackagesByPatterns(pkgs, nil, nil))
	assert.Equal(t, []types.Package{{Name: "left-pad"}},
		FilterPackagesByPatterns(pkgs, []string{"left-*"}, []string{"*-legacy"}))
	assert.Equal(t, []types.Package{{Name: "left-pad"}, {Name: "is-odd"}},
		FilterPackagesByPatterns(pkgs, nil, []string{"*-legacy"}))
}
