// Package docs отдает OpenAPI-описание API для swagger UI.
package docs

import _ "embed"

//go:embed swagger.json
var SwaggerJSON []byte
