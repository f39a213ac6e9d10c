// Package api/openapi serves the OpenAPI 3.0 document and a Swagger UI page.
//
// The document is generated from the route table in server.go, so a route
// added there is documented here without further work. Request bodies are
// described loosely; the validation schemas in internal/validation are the
// authority on field types.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
)

const docsPage = `<!DOCTYPE html>
<html>
<head>
    <title>SimpleThink API Documentation</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui.css" />
    <style>
        html { box-sizing: border-box; overflow-y: scroll; }
        *, *:before, *:after { box-sizing: inherit; }
        body { margin:0; background: #fafafa; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4.15.5/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({
                url: '/api/openapi.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis],
            });
        };
    </script>
</body>
</html>`

// handleOpenAPI serves the OpenAPI documentation interface
func (s *APIServer) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(docsPage))
}

// handleOpenAPISpec serves the OpenAPI JSON specification
func (s *APIServer) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(openAPISpec(r.Host))
}

// openAPISpec builds the OpenAPI document from the route table
func openAPISpec(host string) map[string]interface{} {
	if host == "" {
		host = "localhost:8080"
	}

	paths := make(map[string]interface{})
	for _, rt := range routes {
		item, ok := paths[rt.Pattern].(map[string]interface{})
		if !ok {
			item = make(map[string]interface{})
			paths[rt.Pattern] = item
		}
		item[strings.ToLower(rt.Method)] = operation(rt)
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "SimpleThink API",
			"description": "Template realization with part-of-speech slots, profiles and pools",
			"version":     config.Version,
		},
		"servers": []map[string]interface{}{
			{"url": "http://" + host + "/api/v1"},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"APIResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"success":   map[string]interface{}{"type": "boolean"},
						"data":      map[string]interface{}{"description": "Command payload"},
						"message":   map[string]interface{}{"type": "string"},
						"meta":      map[string]interface{}{"type": "object"},
						"timestamp": map[string]interface{}{"type": "string", "format": "date-time"},
					},
					"required": []string{"success", "timestamp"},
				},
				"ErrorResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"success": map[string]interface{}{"type": "boolean"},
						"error": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"code":    map[string]interface{}{"type": "string", "description": "Error code"},
								"message": map[string]interface{}{"type": "string", "description": "Error message"},
								"details": map[string]interface{}{"type": "string", "description": "Additional error details"},
								"context": map[string]interface{}{"type": "object"},
							},
							"required": []string{"code", "message"},
						},
						"timestamp": map[string]interface{}{"type": "string", "format": "date-time"},
					},
					"required": []string{"success", "error", "timestamp"},
				},
			},
		},
	}
}

func operation(rt route) map[string]interface{} {
	status := "200"
	if rt.Status != 0 {
		status = strconv.Itoa(rt.Status)
	}
	op := map[string]interface{}{
		"operationId": rt.Command,
		"summary":     rt.Summary,
		"responses": map[string]interface{}{
			status: map[string]interface{}{
				"description": "Success",
				"content":     jsonContent("APIResponse"),
			},
			"default": map[string]interface{}{
				"description": "Error",
				"content":     jsonContent("ErrorResponse"),
			},
		},
	}

	var params []map[string]interface{}
	for _, name := range routeParams(rt.Pattern) {
		params = append(params, map[string]interface{}{
			"name":     name,
			"in":       "path",
			"required": true,
			"schema":   map[string]interface{}{"type": "string"},
		})
	}
	for from := range rt.Aliases {
		params = append(params, map[string]interface{}{
			"name":   from,
			"in":     "query",
			"schema": map[string]interface{}{"type": "string"},
		})
	}
	if len(params) > 0 {
		op["parameters"] = params
	}

	switch rt.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		op["requestBody"] = map[string]interface{}{
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]interface{}{"type": "object"},
				},
			},
		}
	}
	return op
}

func jsonContent(schema string) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{
			"schema": map[string]interface{}{"$ref": "#/components/schemas/" + schema},
		},
	}
}
