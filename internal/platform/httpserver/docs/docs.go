// Package docs registers the OpenAPI document served under /swagger/.
// It is maintained by hand in the swag template format.
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
		"/v1/suggestions": {
			"post": {
				"tags": [
					"suggestions"
				],
				"summary": "Submit a suggestion",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Acting user id",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Replay key",
						"name": "Idempotency-Key",
						"in": "header"
					},
					{
						"description": "Suggestion",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/http.SubmitSuggestionRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/http.SuggestionResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"409": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/suggestions/{suggestion_id}": {
			"get": {
				"tags": [
					"suggestions"
				],
				"summary": "Suggestion with stance counts",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Suggestion id",
						"name": "suggestion_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.SuggestionDetailResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/suggestions/{suggestion_id}/endorsements": {
			"post": {
				"tags": [
					"suggestions"
				],
				"summary": "Endorse a suggestion",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Acting user id",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Suggestion id",
						"name": "suggestion_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.SuggestionDetailResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"409": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			},
			"delete": {
				"tags": [
					"suggestions"
				],
				"summary": "Retract an endorsement",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Acting user id",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Suggestion id",
						"name": "suggestion_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.SuggestionDetailResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"409": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/suggestions/{suggestion_id}/objections": {
			"post": {
				"tags": [
					"suggestions"
				],
				"summary": "Object to a suggestion",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Acting user id",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Suggestion id",
						"name": "suggestion_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.SuggestionDetailResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"409": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/suggestions/{suggestion_id}/withdraw": {
			"post": {
				"tags": [
					"suggestions"
				],
				"summary": "Withdraw own suggestion",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Acting user id",
						"name": "X-User-Id",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Suggestion id",
						"name": "suggestion_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.SuggestionResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"409": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/records/{target_type}": {
			"get": {
				"tags": [
					"records"
				],
				"summary": "Browse records newest first",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "green_record or tasting_note",
						"name": "target_type",
						"in": "path",
						"required": true
					},
					{
						"type": "boolean",
						"description": "Only live records, default true",
						"name": "active",
						"in": "query"
					},
					{
						"type": "integer",
						"description": "Page size, default 50, max 200",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.RecordListResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/records/green_record/{record_id}/tasting_notes": {
			"get": {
				"tags": [
					"records"
				],
				"summary": "Live tasting notes of a green record",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Green record id",
						"name": "record_id",
						"in": "path",
						"required": true
					},
					{
						"type": "integer",
						"description": "Page size, default 50, max 200",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.RecordListResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/records/{target_type}/{record_id}": {
			"get": {
				"tags": [
					"records"
				],
				"summary": "Current record state",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "green_record or tasting_note",
						"name": "target_type",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Record id",
						"name": "record_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.RecordResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/records/{target_type}/{record_id}/history": {
			"get": {
				"tags": [
					"records"
				],
				"summary": "Applied change log",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "green_record or tasting_note",
						"name": "target_type",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Record id",
						"name": "record_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.RecordHistoryResponse"
						}
					},
					"404": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/records/{target_type}/{record_id}/suggestions": {
			"get": {
				"tags": [
					"records"
				],
				"summary": "Suggestions for a record",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "green_record or tasting_note",
						"name": "target_type",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Record id",
						"name": "record_id",
						"in": "path",
						"required": true
					},
					{
						"type": "string",
						"description": "Defaults to pending",
						"name": "status",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.SuggestionListResponse"
						}
					},
					"400": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/v1/users/{user_id}/trust": {
			"get": {
				"tags": [
					"users"
				],
				"summary": "Trust level",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "User id",
						"name": "user_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.TrustLevelResponse"
						}
					}
				}
			}
		},
		"/internal/v1/users/{user_id}/karma": {
			"get": {
				"tags": [
					"internal"
				],
				"summary": "Karma statement",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Must be admin",
						"name": "X-User-Role",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "User id",
						"name": "user_id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.KarmaStatementResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/internal/v1/suggestions/expire": {
			"post": {
				"tags": [
					"internal"
				],
				"summary": "Reject expired suggestions",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "Bearer token",
						"name": "Authorization",
						"in": "header",
						"required": true
					},
					{
						"type": "string",
						"description": "Must be admin",
						"name": "X-User-Role",
						"in": "header",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/http.ResolveExpiredResponse"
						}
					},
					"403": {
						"description": "error",
						"schema": {
							"$ref": "#/definitions/http.ErrorEnvelope"
						}
					}
				}
			}
		},
		"/healthz": {
			"get": {
				"tags": [
					"health"
				],
				"summary": "Liveness",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		}
	},
	"definitions": {
		"http.ErrorBody": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				},
				"details": {
					"type": "object",
					"additionalProperties": true
				}
			}
		},
		"http.ErrorEnvelope": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"error": {
					"$ref": "#/definitions/http.ErrorBody"
				},
				"timestamp": {
					"type": "string"
				}
			}
		},
		"http.SubmitSuggestionRequest": {
			"type": "object",
			"properties": {
				"target_type": {
					"type": "string"
				},
				"target_id": {
					"type": "string"
				},
				"operation": {
					"type": "string"
				},
				"payload": {
					"type": "object",
					"additionalProperties": true
				}
			}
		},
		"http.SuggestionResponse": {
			"type": "object",
			"properties": {
				"suggestion_id": {
					"type": "string"
				},
				"target_type": {
					"type": "string"
				},
				"target_id": {
					"type": "string"
				},
				"operation": {
					"type": "string"
				},
				"payload": {
					"type": "object",
					"additionalProperties": true
				},
				"author_id": {
					"type": "string"
				},
				"status": {
					"type": "string"
				},
				"resolution": {
					"type": "string"
				},
				"version": {
					"type": "integer"
				},
				"created_at": {
					"type": "string"
				},
				"expires_at": {
					"type": "string"
				},
				"resolved_at": {
					"type": "string"
				},
				"replayed": {
					"type": "boolean"
				}
			}
		},
		"http.StanceCounts": {
			"type": "object",
			"properties": {
				"support": {
					"type": "integer"
				},
				"oppose": {
					"type": "integer"
				}
			}
		},
		"http.SuggestionDetailResponse": {
			"type": "object",
			"properties": {
				"suggestion": {
					"$ref": "#/definitions/http.SuggestionResponse"
				},
				"counts": {
					"$ref": "#/definitions/http.StanceCounts"
				},
				"required_endorsements": {
					"type": "integer"
				}
			}
		},
		"http.SuggestionListResponse": {
			"type": "object",
			"properties": {
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.SuggestionResponse"
					}
				}
			}
		},
		"http.RecordResponse": {
			"type": "object",
			"properties": {
				"target_type": {
					"type": "string"
				},
				"record_id": {
					"type": "string"
				},
				"version": {
					"type": "integer"
				},
				"active": {
					"type": "boolean"
				},
				"fields": {
					"type": "object",
					"additionalProperties": true
				},
				"created_at": {
					"type": "string"
				},
				"updated_at": {
					"type": "string"
				}
			}
		},
		"http.RecordChangeResponse": {
			"type": "object",
			"properties": {
				"change_id": {
					"type": "string"
				},
				"suggestion_id": {
					"type": "string"
				},
				"operation": {
					"type": "string"
				},
				"payload": {
					"type": "object",
					"additionalProperties": true
				},
				"author_id": {
					"type": "string"
				},
				"sequence": {
					"type": "integer"
				},
				"applied_at": {
					"type": "string"
				}
			}
		},
		"http.RecordListResponse": {
			"type": "object",
			"properties": {
				"target_type": {
					"type": "string"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.RecordResponse"
					}
				}
			}
		},
		"http.RecordHistoryResponse": {
			"type": "object",
			"properties": {
				"target_type": {
					"type": "string"
				},
				"record_id": {
					"type": "string"
				},
				"items": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.RecordChangeResponse"
					}
				}
			}
		},
		"http.TrustLevelResponse": {
			"type": "object",
			"properties": {
				"user_id": {
					"type": "string"
				},
				"trust_level": {
					"type": "string"
				}
			}
		},
		"http.KarmaEntryResponse": {
			"type": "object",
			"properties": {
				"entry_id": {
					"type": "string"
				},
				"suggestion_id": {
					"type": "string"
				},
				"reason": {
					"type": "string"
				},
				"delta": {
					"type": "integer"
				},
				"created_at": {
					"type": "string"
				}
			}
		},
		"http.KarmaStatementResponse": {
			"type": "object",
			"properties": {
				"user_id": {
					"type": "string"
				},
				"score": {
					"type": "integer"
				},
				"trust_level": {
					"type": "string"
				},
				"consistent": {
					"type": "boolean"
				},
				"entries": {
					"type": "array",
					"items": {
						"$ref": "#/definitions/http.KarmaEntryResponse"
					}
				}
			}
		},
		"http.ResolveExpiredResponse": {
			"type": "object",
			"properties": {
				"rejected": {
					"type": "integer"
				}
			}
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Ceto Moderation API",
	Description:      "Suggestion, endorsement and karma moderation for green coffee records and tasting notes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
