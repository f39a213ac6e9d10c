// Package validation checks command parameters before they reach the
// service layer.
//
// SYSTEM ARCHITECTURE ROLE:
// Every interface turns its input into a parameter map (flags, query
// strings, JSON bodies). The validator checks that map against the schema
// registered for the command, converts loosely typed values (query string
// "3" to int 3, "a,b" to an array) and reports every problem at once.
//
// KEY RESPONSIBILITIES:
// - Define schemas for template, profile, generation, pool, pack and import commands
// - Convert values to the declared field type
// - Report field-level errors with codes and convert them to an AppError
//
// INTEGRATION POINTS:
// - internal/commands/types.go: CommandExecutor validates params with the schema named after the command
// - internal/validation/request.go: builds parameter maps from HTTP requests
// - internal/errors/errors.go: ValidationResult.ToAppError()
//
// SCHEMA SYSTEM:
// - Field validators: type, length, pattern, options and a custom check per field
// - Schema rules: cross-field checks run on the raw parameter map
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	tagPattern        = regexp.MustCompile(`^[a-zA-Z0-9_:-]+$`)
)

// Field types understood by the validator
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeArray  = "array"
	TypeObject = "object"
)

// MaxBatchSize bounds one batch request
const MaxBatchSize = 1000

// FieldValidator provides validation rules for individual fields
type FieldValidator struct {
	Name      string
	Required  bool
	Type      string
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Options   []string
	Custom    func(interface{}) error
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid    bool                   `json:"valid"`
	Errors   []ValidationError      `json:"errors,omitempty"`
	Warnings []ValidationWarning    `json:"warnings,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationWarning represents a field validation warning
type ValidationWarning struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Schema represents a validation schema
type Schema struct {
	Name   string
	Fields map[string]FieldValidator
	Rules  []func(map[string]interface{}) error
}

// Validator provides centralized validation functionality
type Validator struct {
	schemas map[string]*Schema
}

// NewValidator creates a validator with the built-in command schemas
func NewValidator() *Validator {
	v := &Validator{
		schemas: make(map[string]*Schema),
	}
	v.registerBuiltinSchemas()
	return v
}

// RegisterSchema registers a validation schema
func (v *Validator) RegisterSchema(schema *Schema) {
	v.schemas[schema.Name] = schema
}

// HasSchema reports whether a schema is registered under name
func (v *Validator) HasSchema(name string) bool {
	_, ok := v.schemas[name]
	return ok
}

// Validate validates data against a schema. Fields the schema does not
// declare are dropped from the validated data with a warning.
func (v *Validator) Validate(schemaName string, data map[string]interface{}) *ValidationResult {
	schema, exists := v.schemas[schemaName]
	if !exists {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "schema",
				Code:    "SCHEMA_NOT_FOUND",
				Message: fmt.Sprintf("Validation schema '%s' not found", schemaName),
			}},
		}
	}

	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
		Data:     make(map[string]interface{}),
	}

	for fieldName, validator := range schema.Fields {
		v.validateField(fieldName, validator, data, result)
	}

	for key, value := range data {
		if _, known := schema.Fields[key]; !known {
			result.Warnings = append(result.Warnings, ValidationWarning{
				Field:   key,
				Message: fmt.Sprintf("Field '%s' is not used by %s", key, schemaName),
				Value:   value,
			})
		}
	}

	for _, rule := range schema.Rules {
		if err := rule(data); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   "schema",
				Code:    "SCHEMA_RULE_VIOLATION",
				Message: err.Error(),
			})
		}
	}

	return result
}

// validateField validates a single field
func (v *Validator) validateField(fieldName string, validator FieldValidator, data map[string]interface{}, result *ValidationResult) {
	value, exists := data[fieldName]

	if validator.Required && (!exists || value == nil || value == "") {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Field:   fieldName,
			Code:    "REQUIRED_FIELD_MISSING",
			Message: fmt.Sprintf("Field '%s' is required", fieldName),
		})
		return
	}

	if !exists || value == nil {
		return
	}

	convertedValue, err := v.validateAndConvertType(fieldName, validator.Type, value)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Field:   fieldName,
			Code:    "INVALID_TYPE",
			Message: err.Error(),
			Value:   value,
		})
		return
	}

	result.Data[fieldName] = convertedValue

	if strValue, ok := convertedValue.(string); ok && validator.Type == TypeString {
		if validator.MinLength > 0 && len(strValue) < validator.MinLength {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "MIN_LENGTH_VIOLATION",
				Message: fmt.Sprintf("Field '%s' must be at least %d characters long", fieldName, validator.MinLength),
				Value:   strValue,
			})
		}

		if validator.MaxLength > 0 && len(strValue) > validator.MaxLength {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "MAX_LENGTH_VIOLATION",
				Message: fmt.Sprintf("Field '%s' must be at most %d characters long", fieldName, validator.MaxLength),
				Value:   strValue,
			})
		}

		// empty optional strings mean "not set" and skip the pattern
		if validator.Pattern != nil && strValue != "" && !validator.Pattern.MatchString(strValue) {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "PATTERN_MISMATCH",
				Message: fmt.Sprintf("Field '%s' does not match required pattern", fieldName),
				Value:   strValue,
			})
		}

		if len(validator.Options) > 0 && strValue != "" && !containsOption(validator.Options, strValue) {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "INVALID_OPTION",
				Message: fmt.Sprintf("Field '%s' must be one of: %s", fieldName, strings.Join(validator.Options, ", ")),
				Value:   strValue,
			})
		}
	}

	if validator.Custom != nil {
		if err := validator.Custom(convertedValue); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName,
				Code:    "CUSTOM_VALIDATION_FAILED",
				Message: fmt.Sprintf("Field '%s': %s", fieldName, err.Error()),
				Value:   convertedValue,
			})
		}
	}
}

func containsOption(options []string, value string) bool {
	for _, option := range options {
		if value == option {
			return true
		}
	}
	return false
}

// validateAndConvertType validates and converts value to the specified type
func (v *Validator) validateAndConvertType(fieldName, expectedType string, value interface{}) (interface{}, error) {
	switch expectedType {
	case TypeString:
		if str, ok := value.(string); ok {
			return str, nil
		}
		return fmt.Sprintf("%v", value), nil

	case TypeInt:
		switch val := value.(type) {
		case int:
			return val, nil
		case int64:
			return int(val), nil
		case float64:
			if val == float64(int(val)) {
				return int(val), nil
			}
		case string:
			if intVal, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
				return intVal, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be an integer", fieldName)

	case TypeFloat:
		switch val := value.(type) {
		case float64:
			return val, nil
		case int:
			return float64(val), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				return f, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be a number", fieldName)

	case TypeBool:
		switch val := value.(type) {
		case bool:
			return val, nil
		case string:
			if boolVal, err := strconv.ParseBool(val); err == nil {
				return boolVal, nil
			}
		}
		return nil, fmt.Errorf("field '%s' must be a boolean", fieldName)

	case TypeArray:
		switch val := value.(type) {
		case []interface{}:
			return val, nil
		case []string:
			result := make([]interface{}, len(val))
			for i, v := range val {
				result[i] = v
			}
			return result, nil
		case string:
			// comma-separated values from flags and query strings
			if val == "" {
				return []interface{}{}, nil
			}
			parts := strings.Split(val, ",")
			result := make([]interface{}, len(parts))
			for i, part := range parts {
				result[i] = strings.TrimSpace(part)
			}
			return result, nil
		}
		return nil, fmt.Errorf("field '%s' must be an array", fieldName)

	case TypeObject:
		if obj, ok := value.(map[string]interface{}); ok {
			return obj, nil
		}
		return nil, fmt.Errorf("field '%s' must be an object", fieldName)

	default:
		return value, nil
	}
}

// ToAppError converts validation result to AppError
func (result *ValidationResult) ToAppError() *errors.AppError {
	if result.Valid {
		return nil
	}

	if len(result.Errors) == 0 {
		return errors.ValidationError("Validation failed")
	}

	firstError := result.Errors[0]
	appErr := errors.ValidationError(firstError.Message)

	var details []string
	for _, validationErr := range result.Errors {
		details = append(details, fmt.Sprintf("%s: %s", validationErr.Field, validationErr.Message))
	}
	appErr.WithDetails(strings.Join(details, "; "))

	appErr.WithContext("validation_errors", result.Errors)
	if len(result.Warnings) > 0 {
		appErr.WithContext("validation_warnings", result.Warnings)
	}

	return appErr
}

// GetValidatedData returns the validated and converted data
func (result *ValidationResult) GetValidatedData() map[string]interface{} {
	if !result.Valid {
		return nil
	}
	return result.Data
}

// Field builders shared by the schemas below

func sessionField() FieldValidator {
	return FieldValidator{Name: "session", Type: TypeString, MaxLength: 100, Pattern: identifierPattern}
}

func idField(name string, required bool) FieldValidator {
	return FieldValidator{Name: name, Type: TypeString, Required: required, MinLength: 1, MaxLength: 200, Pattern: identifierPattern}
}

func expressionField(required bool) FieldValidator {
	return FieldValidator{
		Name:      "expression",
		Type:      TypeString,
		Required:  required,
		MaxLength: 1000,
		Custom: func(value interface{}) error {
			expr, _ := value.(string)
			if strings.TrimSpace(expr) == "" {
				return nil
			}
			_, err := models.ParseBooleanExpression(expr)
			return err
		},
	}
}

func stringArrayField(name string) FieldValidator {
	return FieldValidator{Name: name, Type: TypeArray, Custom: func(value interface{}) error {
		for i, item := range value.([]interface{}) {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("item at position %d is not a string", i)
			}
		}
		return nil
	}}
}

func tagsField() FieldValidator {
	return FieldValidator{Name: "tags", Type: TypeArray, Custom: func(value interface{}) error {
		if err := ValidateTags(value.([]interface{})); err != nil {
			return fmt.Errorf("%s", errors.GetAppError(err).Message)
		}
		return nil
	}}
}

func candidatesField() FieldValidator {
	return FieldValidator{Name: "candidates", Type: TypeArray, Custom: func(value interface{}) error {
		for i, item := range value.([]interface{}) {
			word, ok := item.(map[string]interface{})
			if !ok {
				return fmt.Errorf("candidate at position %d is not an object", i)
			}
			if text, _ := word["text"].(string); strings.TrimSpace(text) == "" {
				return fmt.Errorf("candidate at position %d has no text", i)
			}
		}
		return nil
	}}
}

// realizeFields are the live-word inputs shared by realize, generate and batch
func realizeFields(extra map[string]FieldValidator) map[string]FieldValidator {
	fields := map[string]FieldValidator{
		"session":    sessionField(),
		"candidates": candidatesField(),
		"locked":     stringArrayField("locked"),
		"preselect":  stringArrayField("preselect"),
		"format":     {Name: "format", Type: TypeString, Options: []string{"text", "json", "markdown", "trace"}},
	}
	for k, f := range extra {
		fields[k] = f
	}
	return fields
}

// poolFields are the template pool filters shared by generate and batch
func poolFields(extra map[string]FieldValidator) map[string]FieldValidator {
	fields := realizeFields(map[string]FieldValidator{
		"expression":   expressionField(false),
		"pool":         {Name: "pool", Type: TypeString, MaxLength: 100},
		"query":        {Name: "query", Type: TypeString, MaxLength: 1000},
		"template_ids": stringArrayField("template_ids"),
		"weights": {Name: "weights", Type: TypeObject, Custom: func(value interface{}) error {
			for id, w := range value.(map[string]interface{}) {
				f, ok := w.(float64)
				if !ok || f < 0 {
					return fmt.Errorf("weight for %q must be a non-negative number", id)
				}
			}
			return nil
		}},
	})
	for k, f := range extra {
		fields[k] = f
	}
	return fields
}

func sessionOnly() map[string]FieldValidator {
	return map[string]FieldValidator{"session": sessionField()}
}

// registerBuiltinSchemas registers one schema per command
func (v *Validator) registerBuiltinSchemas() {
	v.RegisterSchema(&Schema{Name: "health", Fields: map[string]FieldValidator{}})

	// Templates
	v.RegisterSchema(&Schema{
		Name: "list_templates",
		Fields: map[string]FieldValidator{
			"session":    sessionField(),
			"query":      {Name: "query", Type: TypeString, MaxLength: 1000},
			"expression": expressionField(false),
		},
	})

	v.RegisterSchema(&Schema{
		Name: "search_templates",
		Fields: map[string]FieldValidator{
			"session": sessionField(),
			"query":   {Name: "query", Type: TypeString, Required: true, MinLength: 1, MaxLength: 1000},
		},
	})

	v.RegisterSchema(&Schema{
		Name:   "get_template",
		Fields: map[string]FieldValidator{"id": idField("id", true)},
	})

	v.RegisterSchema(&Schema{
		Name:   "delete_template",
		Fields: map[string]FieldValidator{"id": idField("id", true)},
	})

	v.RegisterSchema(&Schema{
		Name: "create_template",
		Fields: map[string]FieldValidator{
			"id":          idField("id", false),
			"session":     sessionField(),
			"name":        {Name: "name", Type: TypeString, MaxLength: 500},
			"description": {Name: "description", Type: TypeString, MaxLength: 2000},
			"tags":        tagsField(),
			"weight": {Name: "weight", Type: TypeFloat, Custom: func(value interface{}) error {
				if value.(float64) < 0 {
					return fmt.Errorf("must not be negative")
				}
				return nil
			}},
			"body": {Name: "body", Type: TypeString, Required: true, MinLength: 1, MaxLength: 100000},
			"mode": {Name: "mode", Type: TypeString, Options: []string{"markup", "text"}},
		},
	})

	// Profiles
	v.RegisterSchema(&Schema{Name: "list_profiles", Fields: sessionOnly()})

	for _, name := range []string{"get_profile", "delete_profile", "activate_profile"} {
		v.RegisterSchema(&Schema{
			Name: name,
			Fields: map[string]FieldValidator{
				"session": sessionField(),
				"id":      idField("id", true),
			},
		})
	}

	v.RegisterSchema(&Schema{
		Name: "save_profile",
		Fields: map[string]FieldValidator{
			"session": sessionField(),
			"id":      idField("id", true),
			"profile": {Name: "profile", Type: TypeObject, Required: true},
		},
	})

	v.RegisterSchema(&Schema{
		Name: "update_config",
		Fields: map[string]FieldValidator{
			"session": sessionField(),
			"patch":   {Name: "patch", Type: TypeObject, Required: true},
		},
		Rules: []func(map[string]interface{}) error{
			func(data map[string]interface{}) error {
				patch, _ := data["patch"].(map[string]interface{})
				for _, key := range []string{"jitterProbability", "regexProbability"} {
					if raw, ok := patch[key]; ok {
						if p, ok := raw.(float64); !ok || p < 0 || p > 1 {
							return fmt.Errorf("%s must be a probability between 0 and 1", key)
						}
					}
				}
				return nil
			},
		},
	})

	// Generation
	v.RegisterSchema(&Schema{
		Name:   "realize",
		Fields: realizeFields(map[string]FieldValidator{"template": idField("template", true)}),
	})

	v.RegisterSchema(&Schema{Name: "generate", Fields: poolFields(nil)})

	v.RegisterSchema(&Schema{
		Name: "batch",
		Fields: poolFields(map[string]FieldValidator{
			"count": {Name: "count", Type: TypeInt, Required: true, Custom: func(value interface{}) error {
				if n := value.(int); n < 1 || n > MaxBatchSize {
					return fmt.Errorf("must be between 1 and %d, got %d", MaxBatchSize, n)
				}
				return nil
			}},
		}),
	})

	v.RegisterSchema(&Schema{Name: "logs", Fields: sessionOnly()})
	v.RegisterSchema(&Schema{Name: "clear_logs", Fields: sessionOnly()})
	v.RegisterSchema(&Schema{
		Name: "set_logging",
		Fields: map[string]FieldValidator{
			"session": sessionField(),
			"enabled": {Name: "enabled", Type: TypeBool, Required: true},
		},
	})

	// Pools
	v.RegisterSchema(&Schema{Name: "list_pools", Fields: map[string]FieldValidator{}})
	for _, name := range []string{"get_pool", "delete_pool"} {
		v.RegisterSchema(&Schema{
			Name:   name,
			Fields: map[string]FieldValidator{"name": {Name: "name", Type: TypeString, Required: true, MinLength: 1, MaxLength: 100}},
		})
	}
	v.RegisterSchema(&Schema{
		Name: "save_pool",
		Fields: map[string]FieldValidator{
			"name":         {Name: "name", Type: TypeString, Required: true, MinLength: 1, MaxLength: 100},
			"description":  {Name: "description", Type: TypeString, MaxLength: 2000},
			"expression":   expressionField(false),
			"query":        {Name: "query", Type: TypeString, MaxLength: 1000},
			"template_ids": stringArrayField("template_ids"),
		},
		Rules: []func(map[string]interface{}) error{
			func(data map[string]interface{}) error {
				for _, key := range []string{"expression", "query", "template_ids"} {
					if v, ok := data[key]; ok && v != "" && v != nil {
						return nil
					}
				}
				return fmt.Errorf("a pool needs an expression, a query or template ids")
			},
		},
	})

	// Packs
	v.RegisterSchema(&Schema{Name: "list_packs", Fields: map[string]FieldValidator{}})
	v.RegisterSchema(&Schema{
		Name: "install_pack",
		Fields: map[string]FieldValidator{
			"source": {Name: "source", Type: TypeString, Required: true, MinLength: 1, MaxLength: 2000},
			"name":   {Name: "name", Type: TypeString, MaxLength: 100, Pattern: identifierPattern},
			"branch": {Name: "branch", Type: TypeString, MaxLength: 200},
			"force":  {Name: "force", Type: TypeBool},
		},
	})
	v.RegisterSchema(&Schema{
		Name: "uninstall_pack",
		Fields: map[string]FieldValidator{
			"name": {Name: "name", Type: TypeString, Required: true, MinLength: 1, MaxLength: 100, Pattern: identifierPattern},
		},
	})

	// Import
	importFields := func(extra map[string]FieldValidator) map[string]FieldValidator {
		fields := map[string]FieldValidator{
			"session":   sessionField(),
			"tags":      tagsField(),
			"conflict":  {Name: "conflict", Type: TypeString, Options: []string{"skip", "overwrite", "rename"}},
			"dry_run":   {Name: "dry_run", Type: TypeBool},
			"randomize": {Name: "randomize", Type: TypeBool},
		}
		for k, f := range extra {
			fields[k] = f
		}
		return fields
	}
	v.RegisterSchema(&Schema{
		Name: "import",
		Fields: importFields(map[string]FieldValidator{
			"path": {Name: "path", Type: TypeString, Required: true, MinLength: 1, MaxLength: 4096},
		}),
	})
	v.RegisterSchema(&Schema{
		Name: "import_git",
		Fields: importFields(map[string]FieldValidator{
			"url":    {Name: "url", Type: TypeString, Required: true, MinLength: 1, MaxLength: 2000},
			"path":   {Name: "path", Type: TypeString, MaxLength: 4096},
			"branch": {Name: "branch", Type: TypeString, MaxLength: 200},
			"owner":  {Name: "owner", Type: TypeString, MaxLength: 100},
			"depth":  {Name: "depth", Type: TypeInt},
		}),
	})
}
