// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import "fmt"

// DefaultAdminVersion is the admin API version used when none is given.
const DefaultAdminVersion = "v1"

const (
	adminPrefix  = "/_synapse/admin/"
	clientPrefix = "/_matrix/client/v3"
)

// Surface selects the API family, and for the admin API its version. The
// same host and bearer token serve both families under different base
// paths.
type Surface struct {
	prefix string
}

// AdminSurface selects /_synapse/admin/{version}. An empty version means
// DefaultAdminVersion.
func AdminSurface(version string) Surface {
	if version == "" {
		version = DefaultAdminVersion
	}
	return Surface{prefix: adminPrefix + version}
}

// ClientSurface selects /_matrix/client/v3.
func ClientSurface() Surface {
	return Surface{prefix: clientPrefix}
}

// Path joins the surface prefix and an endpoint. The endpoint must
// already have its path segments escaped.
func (s Surface) Path(endpoint string) string {
	if s.prefix == "" {
		panic(fmt.Sprintf("messaging: zero Surface used for endpoint %q", endpoint))
	}
	return s.prefix + "/" + endpoint
}

// String returns the surface's path prefix.
func (s Surface) String() string { return s.prefix }
