package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "FVU Intake API",
        "description": "Validation, report generation and resilient submission of Forensic Video Unit requests.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Intake", "description": "Validate, preview and submit request forms"},
        {"name": "Drafts", "description": "Saved in-progress forms"},
        {"name": "Identity", "description": "Remembered investigator details"},
        {"name": "Artifacts", "description": "Archived request documents"}
    ],
    "parameters": {
        "FormType": {"name": "type", "in": "path", "required": true, "type": "string", "enum": ["upload", "analysis", "recovery"]},
        "SessionID": {"name": "X-Session-ID", "in": "header", "required": false, "type": "string"},
        "Fields": {"name": "fields", "in": "body", "required": true, "schema": {"type": "object"}}
    },
    "paths": {
        "/forms/{type}/validate": {
            "post": {
                "tags": ["Intake"],
                "summary": "Validate captured fields",
                "parameters": [{"$ref": "#/parameters/FormType"}, {"$ref": "#/parameters/Fields"}],
                "responses": {
                    "200": {"description": "Validation result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed body or unknown fields", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown form type", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/forms/{type}/preview": {
            "post": {
                "tags": ["Intake"],
                "summary": "Render the request report",
                "produces": ["application/pdf", "text/csv"],
                "parameters": [
                    {"$ref": "#/parameters/FormType"},
                    {"$ref": "#/parameters/Fields"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "csv"]}
                ],
                "responses": {
                    "200": {"description": "Report file", "schema": {"type": "file"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/forms/{type}/record": {
            "post": {
                "tags": ["Intake"],
                "summary": "Produce the canonical JSON record",
                "parameters": [{"$ref": "#/parameters/FormType"}, {"$ref": "#/parameters/Fields"}],
                "responses": {
                    "200": {
                        "description": "Canonical record",
                        "headers": {"X-Record-Digest": {"type": "string", "description": "SHA-256 of the record bytes"}},
                        "schema": {"type": "object"}
                    },
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/forms/{type}/submit": {
            "post": {
                "tags": ["Intake"],
                "summary": "Submit a request",
                "description": "Transient failures are retried with exponential backoff. A failed submission is kept as a draft.",
                "parameters": [{"$ref": "#/parameters/FormType"}, {"$ref": "#/parameters/SessionID"}, {"$ref": "#/parameters/Fields"}],
                "responses": {
                    "201": {"description": "Submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A submission is already in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid or rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Submission failed after retries", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/drafts/{type}": {
            "get": {
                "tags": ["Drafts"],
                "summary": "Restore the saved draft",
                "parameters": [{"$ref": "#/parameters/FormType"}, {"$ref": "#/parameters/SessionID"}],
                "responses": {
                    "200": {"description": "Draft", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No saved draft", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Drafts"],
                "summary": "Save a draft",
                "parameters": [
                    {"$ref": "#/parameters/FormType"},
                    {"$ref": "#/parameters/SessionID"},
                    {"$ref": "#/parameters/Fields"},
                    {"name": "mode", "in": "query", "type": "string", "enum": ["now"]}
                ],
                "responses": {
                    "200": {"description": "Saved immediately", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Autosave scheduled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A submission is in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Drafts"],
                "summary": "Discard the saved draft",
                "parameters": [{"$ref": "#/parameters/FormType"}, {"$ref": "#/parameters/SessionID"}],
                "responses": {
                    "204": {"description": "Discarded"}
                }
            }
        },
        "/identity": {
            "get": {
                "tags": ["Identity"],
                "summary": "Remembered investigator details",
                "parameters": [{"$ref": "#/parameters/SessionID"}],
                "responses": {
                    "200": {"description": "Identity", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Nothing remembered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/artifacts/{token}": {
            "get": {
                "tags": ["Artifacts"],
                "summary": "Download an archived artifact",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "404": {"description": "Unknown token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
