// Package validation implementa un validador de peticiones dirigido por
// reglas: cada regla declara los chequeos de un campo y las reglas se
// evalúan en orden de declaración, retornando la primera violación.
package validation

import (
	"regexp"
	"strings"
)

// FieldType representa el tipo primitivo esperado de un campo JSON
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
)

// Rule representa las restricciones de validación de un campo
type Rule struct {
	Field    string
	Required bool
	Type     FieldType
	Pattern  *regexp.Regexp
	Custom   func(value interface{}) bool
	Message  string
}

// Violation representa la primera regla violada de una petición
type Violation struct {
	Field   string
	Message string
}

// Validate evalúa las reglas en orden contra los campos decodificados del
// body y retorna la primera violación, o nil si la petición es válida.
// No acumula errores: la primera falla corta la evaluación.
func Validate(fields map[string]interface{}, rules []Rule) *Violation {
	for _, rule := range rules {
		value, present := fields[rule.Field]

		if rule.Required && (!present || isEmpty(value)) {
			return violation(rule, "The "+rule.Field+" field is required")
		}

		if rule.Required && rule.Type != "" && present && !matchesType(value, rule.Type) {
			return violation(rule, "The "+rule.Field+" field must be a "+string(rule.Type))
		}

		if rule.Pattern != nil && present {
			str, ok := value.(string)
			if !ok || !rule.Pattern.MatchString(str) {
				return violation(rule, "The "+rule.Field+" field has an invalid format")
			}
		}

		if rule.Custom != nil && !rule.Custom(value) {
			return violation(rule, "The "+rule.Field+" field is invalid")
		}
	}

	return nil
}

// violation construye la violación usando el mensaje propio de la regla si existe
func violation(rule Rule, fallback string) *Violation {
	message := rule.Message
	if message == "" {
		message = fallback
	}
	return &Violation{Field: rule.Field, Message: message}
}

// isEmpty retorna true para valores ausentes o strings en blanco
func isEmpty(value interface{}) bool {
	if value == nil {
		return true
	}
	if str, ok := value.(string); ok {
		return strings.TrimSpace(str) == ""
	}
	return false
}

// matchesType verifica el tipo primitivo decodificado por encoding/json
func matchesType(value interface{}, fieldType FieldType) bool {
	switch fieldType {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		// encoding/json decodifica todo número JSON como float64
		_, ok := value.(float64)
		return ok
	default:
		return false
	}
}
