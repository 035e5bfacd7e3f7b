// Package openapi builds the OpenAPI 3.1 document for the QRForge API.
package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/BenTyson/qrforge-sub000/internal/validate"
)

// Generate builds the OpenAPI spec for the public and management API.
func Generate(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "QRForge API",
			Description: "Programmatic QR code creation and management.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "http",
			Scheme:      "bearer",
			Description: "API key issued from the management console (qrf_ prefix).",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"bearerAuth": {}},
	}

	doc.Paths = openapi3.NewPaths()

	doc.Components.Schemas["ErrorResponse"] = errorResponseSchema()
	doc.Components.Schemas["QRCode"] = qrCodeSchema()
	doc.Components.Schemas["QRCodeRequest"] = qrRequestSchema()
	doc.Components.Schemas["APIKey"] = apiKeySchema()

	addQRPaths(doc)
	addSystemPaths(doc)
	addRedirectPath(doc)

	return doc
}

func addQRPaths(doc *openapi3.T) {
	qrRef := openapi3.NewSchemaRef("#/components/schemas/QRCode", nil)
	reqRef := openapi3.NewSchemaRef("#/components/schemas/QRCodeRequest", nil)

	listResponse := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"resource": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: qrRef,
					},
				},
				"meta": metaSchema(),
			},
		},
	}

	doc.Paths.Set("/api/v1/qr", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"qr"},
			Summary:     "List QR codes",
			OperationID: "list_qr_codes",
			Parameters:  pagingParameters(),
			Responses:   newResponses("200", "QR codes for the authenticated account", listResponse),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"qr"},
			Summary:     "Create a QR code",
			OperationID: "create_qr_code",
			RequestBody: jsonBody("QR code definition", reqRef),
			Responses:   newResponses("201", "Created QR code", qrRef),
		},
	})

	doc.Paths.Set("/api/v1/qr/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{idParameter()},
		Get: &openapi3.Operation{
			Tags:        []string{"qr"},
			Summary:     "Get a QR code",
			OperationID: "get_qr_code",
			Responses:   newResponses("200", "The QR code", qrRef),
		},
		Put: &openapi3.Operation{
			Tags:        []string{"qr"},
			Summary:     "Update a QR code",
			OperationID: "update_qr_code",
			RequestBody: jsonBody("Replacement definition", reqRef),
			Responses:   newResponses("200", "Updated QR code", qrRef),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{"qr"},
			Summary:     "Delete a QR code",
			OperationID: "delete_qr_code",
			Responses:   noContentResponses("Deleted"),
		},
	})
}

func addSystemPaths(doc *openapi3.T) {
	keyRef := openapi3.NewSchemaRef("#/components/schemas/APIKey", nil)

	loginReq := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"email", "password"},
			Properties: openapi3.Schemas{
				"email":    &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"password": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			},
		},
	}
	sessionResp := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"token":   &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"account": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
			},
		},
	}

	doc.Paths.Set("/api/v1/system/session", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Log in to the management console",
			OperationID: "create_session",
			Security:    &openapi3.SecurityRequirements{},
			RequestBody: jsonBody("Account credentials", loginReq),
			Responses:   newResponses("200", "Session token", sessionResp),
		},
	})

	keyCreateReq := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"label":      &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"expires_at": &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
			},
		},
	}
	keyCreateResp := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"key":     &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: "The raw API key. Shown once; store it now."}},
				"api_key": keyRef,
			},
		},
	}

	doc.Paths.Set("/api/v1/system/api-key", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "List API keys",
			OperationID: "list_api_keys",
			Responses: newResponses("200", "API keys for the account", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"resource": &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type:  &openapi3.Types{"array"},
								Items: keyRef,
							},
						},
					},
				},
			}),
		},
		Post: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Issue a new API key",
			OperationID: "create_api_key",
			RequestBody: jsonBody("Key parameters", keyCreateReq),
			Responses:   newResponses("201", "The issued key", keyCreateResp),
		},
	})

	doc.Paths.Set("/api/v1/system/api-key/{prefix}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{prefixParameter()},
		Delete: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Revoke an API key",
			OperationID: "revoke_api_key",
			Responses:   noContentResponses("Deleted"),
		},
	})

	whitelistReq := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"ips"},
			Properties: openapi3.Schemas{
				"ips": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"array"},
						Items:       &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
						Description: "Allowed client IPs. Empty clears the restriction; \"*\" allows all.",
					},
				},
			},
		},
	}
	doc.Paths.Set("/api/v1/system/api-key/{prefix}/whitelist", &openapi3.PathItem{
		Parameters: openapi3.Parameters{prefixParameter()},
		Put: &openapi3.Operation{
			Tags:        []string{"system"},
			Summary:     "Replace an API key's IP allow-list",
			OperationID: "update_api_key_whitelist",
			RequestBody: jsonBody("Allow-list entries", whitelistReq),
			Responses:   noContentResponses("Updated"),
		},
	})
}

func addRedirectPath(doc *openapi3.T) {
	doc.Paths.Set("/r/{code}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"redirect"},
			Summary:     "Resolve a short code",
			OperationID: "resolve_short_code",
			Security:    &openapi3.SecurityRequirements{},
			Parameters: openapi3.Parameters{
				&openapi3.ParameterRef{
					Value: openapi3.NewPathParameter("code").
						WithDescription("Short code printed in the QR image.").
						WithSchema(openapi3.NewStringSchema()),
				},
			},
			Responses: newResponses("200", "QR content for non-url kinds; url kinds redirect with 302", &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"object"}},
			}),
		},
	})
}

func qrCodeSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":         &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
				"name":       &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"kind":       kindSchema(),
				"content":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
				"short_code": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"scan_count": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
				"created_at": &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
				"updated_at": &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
			},
		},
	}
}

func qrRequestSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:     &openapi3.Types{"object"},
			Required: []string{"kind", "content"},
			Properties: openapi3.Schemas{
				"name": &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"kind": kindSchema(),
				"content": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"object"},
						Description: "Kind-specific payload; validated per kind before the code is stored.",
					},
				},
			},
		},
	}
}

func kindSchema() *openapi3.SchemaRef {
	kinds := validate.Kinds()
	enum := make([]any, len(kinds))
	for i, k := range kinds {
		enum[i] = k
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"string"},
			Enum: enum,
		},
	}
}

func apiKeySchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"id":                    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
				"key_prefix":            &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Description: "First characters of the key, for display."}},
				"label":                 &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"ip_whitelist":          &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"request_count":         &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
				"monthly_request_count": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}},
				"monthly_reset_at":      &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
				"expires_at":            &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
				"revoked_at":            &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
				"created_at":            &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
				"last_used_at":          &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
			},
		},
	}
}

func errorResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}
}

func metaSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"count": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:        &openapi3.Types{"integer"},
						Format:      "int64",
						Description: "Number of records in this page.",
					},
				},
				"limit": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"},
				},
				"offset": &openapi3.SchemaRef{
					Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"},
				},
			},
		},
	}
}

func pagingParameters() openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("limit").
				WithDescription("Maximum number of records to return (1-100).").
				WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("offset").
				WithDescription("Number of records to skip before returning results.").
				WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
		},
	}
}

func idParameter() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("id").
			WithDescription("QR code identifier.").
			WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}),
	}
}

func prefixParameter() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("prefix").
			WithDescription("Display prefix of the key to operate on.").
			WithSchema(openapi3.NewStringSchema()),
	}
}

func jsonBody(description string, schema *openapi3.SchemaRef) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Description: description,
			Required:    true,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	}
}

// noContentResponses describes a bare 204 plus the standard error responses.
func noContentResponses(description string) *openapi3.Responses {
	responses := openapi3.NewResponses()

	noContent := description
	responses.Set("204", &openapi3.ResponseRef{
		Value: &openapi3.Response{Description: &noContent},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	notFound := "Not found"
	responses.Set("404", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &notFound,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})
	unauth := "Unauthorized"
	responses.Set("401", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &unauth,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})
	return responses
}

// newResponses builds a Responses set with the given success response plus the
// standard error responses.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)

	badReqDesc := "Bad request"
	responses.Set("400", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &badReqDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	unauthDesc := "Unauthorized"
	responses.Set("401", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &unauthDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	limitedDesc := "Rate limit or monthly quota exceeded"
	responses.Set("429", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &limitedDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	return responses
}
