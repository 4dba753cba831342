package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/harness/package-migrator/module/migrate/types/npm"
	"github.com/harness/package-migrator/util/common/errors"
	"github.com/harness/package-migrator/util/common/fileutil"
)

// ManifestRewrite describes how a package.json is moved to the target org.
type ManifestRewrite struct {
	TargetOrg string
	// Repository is the explicitly linked repository name, if any.
	Repository string
	WebHost    string
	Registry   string
}

// RewriteManifest rewrites the package.json at path in place.
func RewriteManifest(path string, rw ManifestRewrite) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewFileError(path, "read", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	rewriteManifest(doc, rw)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFile(path, append(out, '\n'), 0o644)
}

func rewriteManifest(doc map[string]any, rw ManifestRewrite) {
	if name, ok := doc["name"].(string); ok && name != "" {
		doc["name"] = Rescope(name, rw.TargetOrg)
	}

	repo := rw.Repository
	var current *npm.Repository
	switch v := doc["repository"].(type) {
	case string:
		current = &npm.Repository{Type: "git", URL: v}
	case map[string]any:
		current = &npm.Repository{}
		current.Type, _ = v["type"].(string)
		current.URL, _ = v["url"].(string)
		current.Directory, _ = v["directory"].(string)
	}
	if repo == "" && current != nil {
		repo = RepositoryName(current.URL)
	}
	if repo != "" {
		link := map[string]any{
			"type": "git",
			"url":  fmt.Sprintf("git+https://%s/%s/%s.git", rw.WebHost, rw.TargetOrg, repo),
		}
		if current != nil && current.Directory != "" {
			link["directory"] = current.Directory
		}
		doc["repository"] = link
	}

	publishConfig, _ := doc["publishConfig"].(map[string]any)
	if publishConfig == nil {
		publishConfig = map[string]any{}
	}
	publishConfig["registry"] = strings.TrimSuffix(rw.Registry, "/") + "/"
	doc["publishConfig"] = publishConfig
}

// Rescope replaces the scope of a package name with org.
func Rescope(name, org string) string {
	bare := name
	if strings.HasPrefix(name, "@") {
		if i := strings.Index(name, "/"); i >= 0 {
			bare = name[i+1:]
		}
	}
	return "@" + strings.ToLower(org) + "/" + bare
}

// RepositoryName extracts the repository name from a repository link:
// the final path segment without a ".git" suffix.
func RepositoryName(link string) string {
	link = strings.TrimSpace(strings.TrimRight(link, "/"))
	link = strings.TrimSuffix(link, ".git")
	if i := strings.LastIndexAny(link, "/:"); i >= 0 {
		link = link[i+1:]
	}
	return link
}
