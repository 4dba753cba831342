package npm

// PackageMetadata is the registry manifest of one package. Only the fields
// needed to locate version tarballs are decoded.
// nolint:tagliatelle
type PackageMetadata struct {
	ID       string                             `json:"_id"`
	Name     string                             `json:"name"`
	DistTags map[string]string                  `json:"dist-tags,omitempty"`
	Versions map[string]*PackageMetadataVersion `json:"versions"`
}

// PackageMetadataVersion documentation:
// https://github.com/npm/registry/blob/master/docs/REGISTRY-API.md#version
// nolint:tagliatelle
type PackageMetadataVersion struct {
	ID         string              `json:"_id"`
	Name       string              `json:"name"`
	Version    string              `json:"version"`
	Repository interface{}         `json:"repository,omitempty"`
	Dist       PackageDistribution `json:"dist"`
}

// TarballURL returns the download URL of version v, or "" when the manifest
// does not list it.
func (m *PackageMetadata) TarballURL(v string) string {
	if m == nil || m.Versions == nil {
		return ""
	}
	pv, ok := m.Versions[v]
	if !ok || pv == nil {
		return ""
	}
	return pv.Dist.Tarball
}

// Repository https://github.com/npm/registry/blob/master/docs/REGISTRY-API.md#version
// nolint:tagliatelle
type Repository struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Directory string `json:"directory,omitempty"`
}

// PackageDistribution https://github.com/npm/registry/blob/master/docs/REGISTRY-API.md#version
// nolint:tagliatelle
type PackageDistribution struct {
	Integrity    string `json:"integrity"`
	Shasum       string `json:"shasum"`
	Tarball      string `json:"tarball"`
	FileCount    int    `json:"fileCount,omitempty"`
	UnpackedSize int    `json:"unpackedSize,omitempty"`
}
