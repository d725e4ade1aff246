package openapi

func errorEnvelope() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"error": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code":    map[string]any{"type": "string"},
					"message": map[string]any{"type": "string"},
				},
				"required": []string{"code", "message"},
			},
		},
		"required": []string{"error"},
	}
}

func errorResponse(description string) map[string]any {
	return map[string]any{
		"description": description,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}
}

// Spec returns a minimal OpenAPI 3 spec for the Bugwatch ingestion API.
// It is intentionally hand-maintained to avoid codegen tooling.
func Spec() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "Bugwatch API",
			"version": "0.1.0",
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": map[string]any{
					"tags":        []string{"system"},
					"summary":     "Health check",
					"operationId": "healthz",
					"responses":   map[string]any{"200": map[string]any{"description": "OK"}},
				},
			},
			"/api/v1/events": map[string]any{
				"post": map[string]any{
					"tags":        []string{"ingest"},
					"summary":     "Ingest an error event",
					"operationId": "ingestEvent",
					"security":    []map[string]any{{"apiKey": []string{}}},
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/Event"},
							},
						},
					},
					"responses": map[string]any{
						"202": map[string]any{
							"description": "Accepted",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": map[string]any{"$ref": "#/components/schemas/IngestResult"},
								},
							},
						},
						"401": errorResponse("Missing or unknown API key"),
						"422": errorResponse("Malformed event payload"),
						"429": errorResponse("Project over its rate limit"),
					},
				},
			},
			"/api/v1/usage": map[string]any{
				"get": map[string]any{
					"tags":        []string{"usage"},
					"summary":     "Today's ingestion counters for the project",
					"operationId": "getUsage",
					"security":    []map[string]any{{"apiKey": []string{}}},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Usage",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": map[string]any{"$ref": "#/components/schemas/Usage"},
								},
							},
						},
						"401": errorResponse("Missing or unknown API key"),
						"503": errorResponse("Usage metrics are not enabled"),
					},
				},
			},
			"/api/v1/keys/rotate": map[string]any{
				"post": map[string]any{
					"tags":        []string{"projects"},
					"summary":     "Rotate the project API key",
					"operationId": "rotateKey",
					"security":    []map[string]any{{"apiKey": []string{}}},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "New credential",
							"content": map[string]any{
								"application/json": map[string]any{
									"schema": map[string]any{
										"type": "object",
										"properties": map[string]any{
											"api_key": map[string]any{"type": "string"},
										},
										"required": []string{"api_key"},
									},
								},
							},
						},
						"401": errorResponse("Missing or unknown API key"),
					},
				},
			},
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"apiKey": map[string]any{
					"type":        "http",
					"scheme":      "bearer",
					"description": "Project API key",
				},
			},
			"schemas": map[string]any{
				"Error": errorEnvelope(),
				"IngestResult": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":     map[string]any{"type": "string"},
						"status": map[string]any{"type": "string", "enum": []string{"accepted", "duplicate"}},
					},
					"required": []string{"id", "status"},
				},
				"Usage": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"accepted":     map[string]any{"type": "integer", "format": "int64"},
						"duplicate":    map[string]any{"type": "integer", "format": "int64"},
						"rate_limited": map[string]any{"type": "integer", "format": "int64"},
						"users":        map[string]any{"type": "integer", "format": "int64"},
					},
				},
				"Event": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"event_id":    map[string]any{"type": "string"},
						"timestamp":   map[string]any{"type": "string"},
						"level":       map[string]any{"type": "string"},
						"message":     map[string]any{"type": "string"},
						"environment": map[string]any{"type": "string"},
						"release":     map[string]any{"type": "string"},
						"platform":    map[string]any{"type": "string"},
						"exception": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"type":  map[string]any{"type": "string"},
								"value": map[string]any{"type": "string"},
								"stacktrace": map[string]any{
									"type":  "array",
									"items": map[string]any{"type": "object"},
								},
							},
						},
						"tags": map[string]any{
							"type":                 "object",
							"additionalProperties": map[string]any{"type": "string"},
						},
						"user": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":         map[string]any{"type": "string"},
								"email":      map[string]any{"type": "string"},
								"username":   map[string]any{"type": "string"},
								"ip_address": map[string]any{"type": "string"},
							},
						},
						"breadcrumbs": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "object"},
						},
					},
				},
			},
		},
	}
}
