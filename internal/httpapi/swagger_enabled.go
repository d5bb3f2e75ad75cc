//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "basePath": "{{.BasePath}}",
    "paths": {
        "/sessions": {
            "get": {"summary": "List live sessions", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
            "post": {"summary": "Create a session", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"201": {"description": "Created"}, "404": {"description": "model not found"}}}
        },
        "/sessions/{id}": {
            "delete": {"summary": "Release a session", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"204": {"description": "No Content"}, "404": {"description": "session not found"}}}
        },
        "/sessions/{id}/chat": {
            "post": {"summary": "Stream one reply as NDJSON chat events", "consumes": ["application/json"], "produces": ["application/x-ndjson"], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "NDJSON stream"}, "409": {"description": "generation in flight"}}}
        },
        "/models": {
            "get": {"summary": "List discovered models", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/status": {
            "get": {"summary": "Server status", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        }
    }
}`

var swaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "sessiond API",
	Description:      "HTTP API for local LLM conversation sessions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(swaggerInfo.InstanceName(), swaggerInfo)
}

// MountSwagger serves the interactive API docs at /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler())
}
