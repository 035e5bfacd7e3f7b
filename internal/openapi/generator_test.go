package openapi

import (
	"testing"
)

func TestGenerate(t *testing.T) {
	doc := Generate("http://localhost:8080")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("version = %q, want 3.1.0", doc.OpenAPI)
	}
	if len(doc.Servers) == 0 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Fatalf("servers = %+v", doc.Servers)
	}

	for _, p := range []string{
		"/api/v1/qr",
		"/api/v1/qr/{id}",
		"/api/v1/system/session",
		"/api/v1/system/api-key",
		"/api/v1/system/api-key/{prefix}",
		"/api/v1/system/api-key/{prefix}/whitelist",
		"/r/{code}",
	} {
		if doc.Paths.Value(p) == nil {
			t.Errorf("path %q missing", p)
		}
	}

	if _, ok := doc.Components.SecuritySchemes["bearerAuth"]; !ok {
		t.Error("bearerAuth security scheme missing")
	}
	if _, ok := doc.Components.Schemas["ErrorResponse"]; !ok {
		t.Error("ErrorResponse schema missing")
	}
}

func TestGenerateKeyCreateResponseDescribesRawKey(t *testing.T) {
	doc := Generate("http://localhost:8080")

	item := doc.Paths.Value("/api/v1/system/api-key")
	if item == nil || item.Post == nil {
		t.Fatal("key create operation missing")
	}
	resp := item.Post.Responses.Value("201")
	if resp == nil || resp.Value == nil {
		t.Fatal("201 response missing")
	}
	media := resp.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		t.Fatal("201 response schema missing")
	}
	keyProp, ok := media.Schema.Value.Properties["key"]
	if !ok || keyProp.Value == nil {
		t.Fatal("key property missing from create response schema")
	}
	if keyProp.Value.Description == "" {
		t.Error("key property has no description")
	}
	if !keyProp.Value.Type.Is("string") {
		t.Errorf("key property type = %v, want string", keyProp.Value.Type)
	}
}
