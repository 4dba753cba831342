// Copyright Project Harbor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bearer

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/harness/package-migrator/module/migrate/http/modifier"
)

// NewAuthorizer returns a bearer token authorizer. When hosts are given the
// token is only attached to requests targeting one of them, so a token never
// leaks to a redirect on a storage backend.
func NewAuthorizer(token string, hosts ...string) modifier.Modifier {
	a := &authorizer{token: token, hosts: map[string]struct{}{}}
	for _, h := range hosts {
		if u, err := url.Parse(h); err == nil && u.Host != "" {
			h = u.Host
		}
		a.hosts[h] = struct{}{}
	}
	return a
}

type authorizer struct {
	token string
	hosts map[string]struct{}
}

func (a *authorizer) Modify(req *http.Request) error {
	if a.token == "" || !a.isTarget(req) {
		return nil
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", a.token))
	return nil
}

func (a *authorizer) isTarget(req *http.Request) bool {
	if len(a.hosts) == 0 {
		return true
	}
	_, ok := a.hosts[req.URL.Host]
	return ok
}
