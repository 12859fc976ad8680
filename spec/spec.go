// Package spec carries the OpenAPI contract of the fleet dispatch API.
package spec

import _ "embed"

// OpenAPI is openapi.yaml as compiled into the binary; the server hands it
// out unauthenticated at GET /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
