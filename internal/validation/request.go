package validation

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// RequestData merges query parameters, chi route parameters and a JSON or
// form body into one parameter map. Later sources win: route parameters
// override the query string and the body overrides both, except that
// route parameters named in pinned are never overridden.
func RequestData(r *http.Request, pinned ...string) (map[string]interface{}, error) {
	data := make(map[string]interface{})

	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			data[key] = values[0]
		} else if len(values) > 1 {
			data[key] = values
		}
	}

	route := make(map[string]string)
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, key := range rctx.URLParams.Keys {
			if key == "*" || i >= len(rctx.URLParams.Values) {
				continue
			}
			route[key] = rctx.URLParams.Values[i]
			data[key] = rctx.URLParams.Values[i]
		}
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		contentType := r.Header.Get("Content-Type")
		var body map[string]interface{}
		var err error
		if strings.Contains(contentType, "application/x-www-form-urlencoded") {
			body, err = extractFormBody(r)
		} else {
			body, err = extractJSONBody(r)
		}
		if err != nil {
			return nil, err
		}
		for key, value := range body {
			data[key] = value
		}
	}

	for _, key := range pinned {
		if v, ok := route[key]; ok {
			data[key] = v
		}
	}
	return data, nil
}

func extractJSONBody(r *http.Request) (map[string]interface{}, error) {
	if r.Body == nil {
		return map[string]interface{}{}, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errors.ValidationError("Failed to read request body")
	}
	if len(body) > maxBodyBytes {
		return nil, errors.ValidationError("Request body too large")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return map[string]interface{}{}, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, errors.ValidationError("Invalid JSON in request body").WithDetails(err.Error())
	}
	return data, nil
}

func extractFormBody(r *http.Request) (map[string]interface{}, error) {
	if err := r.ParseForm(); err != nil {
		return nil, errors.ValidationError("Failed to parse form data")
	}

	data := make(map[string]interface{})
	for key, values := range r.PostForm {
		if len(values) == 1 {
			data[key] = values[0]
		} else if len(values) > 1 {
			data[key] = values
		}
	}
	return data, nil
}

// SanitizeString removes control characters except newlines and tabs
func SanitizeString(input string) string {
	cleaned := strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range cleaned {
		if r == '\n' || r == '\t' || r == '\r' || r >= 32 {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateIdentifier checks a template, profile or session id
func ValidateIdentifier(id string) error {
	if id == "" {
		return errors.ValidationError("Identifier cannot be empty")
	}
	if len(id) > 200 {
		return errors.ValidationError("Identifier too long (max 200 characters)")
	}
	if !identifierPattern.MatchString(id) {
		return errors.ValidationError("Identifier contains invalid characters (letters, digits, '.', '_' and '-' only)")
	}
	return nil
}

// ValidateTag checks a single template tag
func ValidateTag(tag string) error {
	if tag == "" {
		return errors.ValidationError("Tag cannot be empty")
	}
	if len(tag) > 50 {
		return errors.ValidationError("Tag too long (max 50 characters)")
	}
	if !tagPattern.MatchString(tag) {
		return errors.ValidationError("Tag contains invalid characters")
	}
	return nil
}

// ValidateTags checks a tag list as decoded from JSON
func ValidateTags(tags []interface{}) error {
	if len(tags) > 20 {
		return errors.ValidationError("Too many tags (max 20)")
	}

	for i, tag := range tags {
		tagStr, ok := tag.(string)
		if !ok {
			return errors.ValidationError(fmt.Sprintf("Tag at position %d is not a string", i))
		}
		if err := ValidateTag(tagStr); err != nil {
			return errors.ValidationError(fmt.Sprintf("Tag at position %d: %s", i, errors.GetAppError(err).Message))
		}
	}

	return nil
}
