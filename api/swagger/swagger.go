package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Survey Pulse API",
        "description": "Survey lifecycle, response admission and statistics service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Account registration and sign in"},
        {"name": "Surveys", "description": "Survey authoring and lifecycle"},
        {"name": "Responses", "description": "Owner response administration, statistics and exports"},
        {"name": "Public", "description": "Respondent-facing survey view and submission"},
        {"name": "Media", "description": "Survey media uploads"},
        {"name": "Admin", "description": "Operational endpoints"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a new account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/surveys": {
            "get": {
                "tags": ["Surveys"],
                "summary": "List surveys",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"},
                    {"name": "template", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Surveys"],
                "summary": "Create survey",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SurveyInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"}
                }
            }
        },
        "/surveys/templates": {
            "get": {
                "tags": ["Surveys"],
                "summary": "List survey templates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/surveys/{id}": {
            "get": {
                "tags": ["Surveys"],
                "summary": "Get survey",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Surveys"],
                "summary": "Update a pending survey",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SurveyInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Survey is no longer pending"}
                }
            },
            "delete": {
                "tags": ["Surveys"],
                "summary": "Delete survey",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/surveys/{id}/clone": {
            "post": {
                "tags": ["Surveys"],
                "summary": "Clone survey",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/surveys/{id}/status": {
            "patch": {
                "tags": ["Surveys"],
                "summary": "Toggle survey status",
                "description": "Publishes a pending survey or closes a published one. Closed surveys reject the toggle.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ToggleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Survey already closed"}
                }
            }
        },
        "/surveys/{id}/settings": {
            "put": {
                "tags": ["Surveys"],
                "summary": "Update survey settings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SettingsInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Survey already closed"}
                }
            }
        },
        "/surveys/{id}/responses": {
            "get": {
                "tags": ["Responses"],
                "summary": "List survey responses",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/surveys/{id}/responses/{responseId}": {
            "get": {
                "tags": ["Responses"],
                "summary": "Get one response",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "responseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Responses"],
                "summary": "Delete one response",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "responseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/surveys/{id}/statistics": {
            "get": {
                "tags": ["Responses"],
                "summary": "Get survey statistics",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/surveys/{id}/export": {
            "get": {
                "tags": ["Responses"],
                "summary": "Export survey responses",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Unsupported format"}
                }
            }
        },
        "/public/surveys/{id}": {
            "get": {
                "tags": ["Public"],
                "summary": "Get published survey",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Survey not found or not published"}
                }
            }
        },
        "/public/surveys/{id}/responses": {
            "post": {
                "tags": ["Public"],
                "summary": "Submit survey response",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Admitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed or email required"},
                    "404": {"description": "Survey not found or not published"},
                    "409": {"description": "Duplicate response or response limit reached"}
                }
            }
        },
        "/media": {
            "post": {
                "tags": ["Media"],
                "summary": "Upload media",
                "consumes": ["multipart/form-data"],
                "parameters": [{"name": "file", "in": "formData", "required": true, "type": "file"}],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/media/{ref}": {
            "get": {
                "tags": ["Media"],
                "summary": "Download media",
                "parameters": [{"name": "ref", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Media"],
                "summary": "Delete media",
                "parameters": [{"name": "ref", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/admin/sweep": {
            "post": {
                "tags": ["Admin"],
                "summary": "Run a lifecycle sweep",
                "responses": {
                    "200": {"description": "Swept"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "SurveyInput": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "media_ref": {"type": "string"},
                "is_template": {"type": "boolean"},
                "settings": {"$ref": "#/definitions/SettingsInput"},
                "questions": {"type": "array", "items": {"$ref": "#/definitions/QuestionInput"}}
            }
        },
        "SettingsInput": {
            "type": "object",
            "properties": {
                "require_email": {"type": "boolean"},
                "allow_multiple_responses": {"type": "boolean"},
                "open_time": {"type": "string", "format": "date-time"},
                "close_time": {"type": "string", "format": "date-time"},
                "max_response": {"type": "integer"},
                "auto_close_condition": {"type": "string", "enum": ["manual", "by_time", "by_response"]},
                "response_letter": {"type": "string"}
            }
        },
        "QuestionInput": {
            "type": "object",
            "required": ["question_text", "type"],
            "properties": {
                "question_text": {"type": "string"},
                "media_ref": {"type": "string"},
                "type": {"type": "string", "enum": ["short_text", "long_text", "multiple_choice", "checkbox", "matrix_choice", "matrix_input"]},
                "is_required": {"type": "boolean"},
                "order": {"type": "integer"},
                "options": {"type": "array", "items": {"type": "object"}},
                "matrix_rows": {"type": "array", "items": {"type": "object"}},
                "matrix_columns": {"type": "array", "items": {"type": "object"}}
            }
        },
        "SubmitRequest": {
            "type": "object",
            "required": ["answers"],
            "properties": {
                "email": {"type": "string"},
                "answers": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "questionId": {"type": "string"},
                            "answer": {"type": "string"},
                            "customText": {"type": "string"},
                            "matrix": {"type": "array", "items": {"type": "object"}}
                        }
                    }
                }
            }
        },
        "ToggleRequest": {
            "type": "object",
            "properties": {
                "channels": {"type": "array", "items": {"type": "string"}},
                "custom_message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "object"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
