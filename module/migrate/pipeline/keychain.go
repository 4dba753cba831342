package pipeline

import (
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
)

type hostKeychain struct {
	username string
	password string
	hostname string
}

// NewHostKeychain returns a keychain that answers with the given credential
// for hostname only.
func NewHostKeychain(username, password, hostname string) authn.Keychain {
	hostname = strings.TrimPrefix(strings.TrimPrefix(hostname, "https://"), "http://")
	return hostKeychain{username: username, password: password, hostname: hostname}
}

func (k hostKeychain) Resolve(r authn.Resource) (authn.Authenticator, error) {
	if k.password == "" {
		return authn.Anonymous, nil
	}
	if strings.EqualFold(r.RegistryStr(), k.hostname) {
		return authn.FromConfig(authn.AuthConfig{Username: k.username, Password: k.password}), nil
	}
	return authn.Anonymous, nil
}
