package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the places service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>snacktacular-places - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "snacktacular-places", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Place": {"type":"object","properties":{"name":{"type":"string"},"address":{"type":"string"},"coordinate":{"type":"object","properties":{"latitude":{"type":"number"},"longitude":{"type":"number"}}},"postingUserID":{"type":"string"},"documentID":{"type":"string"}}},
      "PlaceInput": {"type":"object","properties":{"name":{"type":"string"},"address":{"type":"string"},"coordinate":{"type":"object","properties":{"latitude":{"type":"number"},"longitude":{"type":"number"}}}}}
    }
  },
  "paths": {
    "/api/places": {
      "get": { "summary": "List places with their index", "responses": { "200": { "description": "places, stale=true when an on-read reload failed" } } },
      "post": { "summary": "Add and save a new place", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/PlaceInput"}}}}, "responses": { "201": { "description": "saved" }, "502": { "description": "backend write failed, local record kept" } } }
    },
    "/api/places/{index}": {
      "get": { "summary": "Get a place and its map region", "responses": { "200": { "description": "place" }, "404": { "description": "no such index" } } },
      "put": { "summary": "Replace a place with an edited copy and save it", "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/PlaceInput"}}}}, "responses": { "200": { "description": "saved" }, "404": { "description": "no such index" }, "502": { "description": "backend write failed, local edit kept" } } }
    },
    "/api/places/reload": {
      "post": { "summary": "Reload the list from the backend", "responses": { "200": { "description": "count" }, "502": { "description": "load failed, list unchanged" } } }
    },
    "/api/places/draft": {
      "post": { "summary": "Draft a place from the device location", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"latitude":{"type":"number"},"longitude":{"type":"number"},"authorization":{"type":"string","enum":["authorized","not_determined","denied","restricted"]}}}}}}, "responses": { "200": { "description": "draft" }, "403": { "description": "location use not authorized" } } }
    },
    "/api/places/autocomplete": {
      "get": { "summary": "Search places by name", "parameters": [{"name":"q","in":"query","schema":{"type":"string"}}], "responses": { "200": { "description": "suggestions, cancelled=true for an empty query" } } }
    },
    "/api/places/snapshot": {
      "post": { "summary": "Export the list to object storage", "responses": { "201": { "description": "snapshot key and link" }, "503": { "description": "object storage not configured" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Sign out: revoke the bearer token", "responses": { "200": { "description": "logged out" }, "401": { "description": "missing or invalid token" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get the current user", "responses": { "200": { "description": "user or signedIn=false" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
