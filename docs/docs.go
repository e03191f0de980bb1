// Package docs registers the OpenAPI description served by the swagger UI.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"summary": "Readiness probe", "responses": {"200": {"description": "healthy"}, "503": {"description": "store unreachable"}}}},
        "/vocabulary": {"get": {"summary": "Dropdown lists", "responses": {"200": {"description": "OK"}}}},
        "/models": {"get": {"summary": "List models", "parameters": [
            {"type": "string", "name": "q", "in": "query"},
            {"type": "string", "name": "folder", "in": "query"}
        ], "responses": {"200": {"description": "OK"}}}},
        "/models/{model_no}": {
            "get": {"summary": "Fetch a model", "parameters": [{"type": "string", "name": "model_no", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "NOT_FOUND"}}},
            "put": {"summary": "Create or replace a model", "parameters": [{"type": "string", "name": "model_no", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "VALIDATION_FAILED"}}},
            "patch": {"summary": "Change model attributes", "parameters": [{"type": "string", "name": "model_no", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"summary": "Delete a model", "parameters": [
                {"type": "string", "name": "model_no", "in": "path", "required": true},
                {"type": "boolean", "name": "cascade_records", "in": "query"},
                {"type": "boolean", "name": "cascade_blobs", "in": "query"}
            ], "responses": {"200": {"description": "OK"}, "409": {"description": "DEPENDENCY_EXISTS"}}}
        },
        "/models/{model_no}/rename": {"post": {"summary": "Rename a model", "parameters": [{"type": "string", "name": "model_no", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "CONFLICT"}}}},
        "/folders": {"get": {"summary": "Folder tags", "responses": {"200": {"description": "OK"}}}},
        "/customers": {"get": {"summary": "Distinct customers", "parameters": [{"type": "string", "name": "kind", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/records/{kind}": {"post": {"summary": "Create a record", "consumes": ["application/json", "multipart/form-data"], "parameters": [{"type": "string", "name": "kind", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}, "400": {"description": "VALIDATION_FAILED"}}}},
        "/records/{kind}/{id}": {
            "get": {"summary": "Fetch a record", "parameters": [{"type": "string", "name": "kind", "in": "path", "required": true}, {"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "NOT_FOUND"}}},
            "patch": {"summary": "Sparse update", "parameters": [{"type": "string", "name": "kind", "in": "path", "required": true}, {"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"summary": "Delete a record", "parameters": [{"type": "string", "name": "kind", "in": "path", "required": true}, {"type": "integer", "name": "id", "in": "path", "required": true}, {"type": "boolean", "name": "delete_blobs", "in": "query"}], "responses": {"204": {"description": "No Content"}}}
        },
        "/records/{kind}/{id}/images": {"post": {"summary": "Attach an image", "consumes": ["multipart/form-data"], "parameters": [{"type": "string", "name": "kind", "in": "path", "required": true}, {"type": "integer", "name": "id", "in": "path", "required": true}, {"type": "file", "name": "file", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/search/{kind}": {"get": {"summary": "Search records", "parameters": [
            {"type": "string", "name": "kind", "in": "path", "required": true},
            {"type": "string", "name": "model_no", "in": "query"},
            {"type": "string", "name": "version", "in": "query"},
            {"type": "string", "name": "serial_no", "in": "query"},
            {"type": "string", "name": "mo", "in": "query"},
            {"type": "string", "name": "q", "in": "query"},
            {"type": "string", "name": "customer", "in": "query"},
            {"type": "string", "name": "from", "in": "query"},
            {"type": "string", "name": "to", "in": "query"},
            {"type": "boolean", "name": "include_undated", "in": "query"},
            {"type": "string", "name": "order", "in": "query", "enum": ["newest", "severity"]},
            {"type": "integer", "name": "limit", "in": "query"},
            {"type": "integer", "name": "offset", "in": "query"}
        ], "responses": {"200": {"description": "OK"}}}},
        "/export/{kind}": {"get": {"summary": "Export matches as CSV", "produces": ["text/csv"], "parameters": [{"type": "string", "name": "kind", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/imports": {"post": {"summary": "Open an import session", "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}, {"type": "string", "name": "kind", "in": "formData"}], "responses": {"201": {"description": "Created"}, "422": {"description": "UNREADABLE_FILE"}}}},
        "/imports/{id}": {
            "get": {"summary": "Session state", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"summary": "Discard a session", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"204": {"description": "No Content"}}}
        },
        "/imports/{id}/mapping": {"put": {"summary": "Set kind and column mapping", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "INCOMPLETE_MAPPING"}}}},
        "/imports/{id}/commit": {"post": {"summary": "Insert every row", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "INVALID_STATE"}}}},
        "/images/{path}": {"get": {"summary": "Stored image", "parameters": [{"type": "string", "name": "path", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "NOT_FOUND"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "QC Portal API",
	Description:      "First-piece inspections, nonconformity reports and the model registry.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
