// Package inputval validates decoded JSON request bodies with
// waffle/pantry/validate and maps the first failure onto apperr.
//
//	type createProjectInput struct {
//	    Kind  string `json:"kind" validate:"required,projectkind" label:"Kind"`
//	    Title string `json:"title" validate:"max=200" label:"Title"`
//	}
//
//	if err := inputval.Validate(in).Err(); err != nil {
//	    jsonutil.WriteError(w, err)
//	    return
//	}
package inputval

import (
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/waffle/pantry/validate"
	"github.com/mysre-platform/mysre/internal/app/system/apperr"
	"github.com/mysre-platform/mysre/internal/app/system/sessionid"
	"github.com/mysre-platform/mysre/internal/domain/models"
)

// FieldError is one failed rule, keyed by the field's json name.
type FieldError struct {
	Field   string
	Message string
}

// Result collects the failures of one Validate call.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// Err converts the first failure into an apperr validation error, or nil.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return apperr.Validation(r.Errors[0].Field, r.Errors[0].Message)
}

type rule struct {
	check   func(string) bool
	message func(label string) string
}

// Domain rules. Empty strings pass every rule except projectkind so that
// optional fields only need `required` when they really are required.
var rules = map[string]rule{
	"projectkind": {
		check: func(s string) bool {
			return models.IsValidProjectKind(strings.ToLower(strings.TrimSpace(s)))
		},
		message: func(label string) string {
			return label + " must be one of: " + strings.Join(models.AllProjectKinds(), ", ") + "."
		},
	},
	"uuid": {
		check:   func(s string) bool { return s == "" || sessionid.IsUUID(strings.TrimSpace(s)) },
		message: func(label string) string { return label + " is not a valid ID." },
	},
	"sessionid": {
		check:   func(s string) bool { return s == "" || sessionid.Valid(s) },
		message: func(label string) string { return label + " is not a valid session id." },
	},
}

var (
	validatorOnce sync.Once
	validator     *validate.Validator
)

func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		validator = validate.New(validate.WithStopOnFirstError())
		for name, r := range rules {
			check := r.check
			validator.RegisterRuleFunc(name, func(value any) bool {
				s, ok := value.(string)
				return ok && check(s)
			}, name)
		}
	})
	return validator
}

// Validate runs the struct's `validate` tags. Messages use the `label` tag
// when present and fall back to the json field name.
//
// Besides the pantry/validate built-ins (required, email, oneof, min, max)
// the rules projectkind, uuid and sessionid are available.
func Validate(s any) *Result {
	result := &Result{}
	err := getValidator().Struct(s)
	if err == nil {
		return result
	}
	errs, ok := err.(validate.Errors)
	if !ok {
		return result
	}

	labels := fieldLabels(s)
	for _, e := range errs {
		label := labels[e.Field]
		if label == "" {
			label = e.Field
		}
		result.Errors = append(result.Errors, FieldError{
			Field:   e.Field,
			Message: message(label, e.Rule, e.Param),
		})
	}
	return result
}

// fieldLabels maps json field names to their `label` tags.
func fieldLabels(s any) map[string]string {
	labels := make(map[string]string)
	val := reflect.Indirect(reflect.ValueOf(s))
	if val.Kind() != reflect.Struct {
		return labels
	}
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		label := f.Tag.Get("label")
		if label == "" {
			continue
		}
		name := f.Name
		if j, _, _ := strings.Cut(f.Tag.Get("json"), ","); j != "" && j != "-" {
			name = j
		}
		labels[name] = label
	}
	return labels
}

func message(label, ruleName, param string) string {
	if r, ok := rules[ruleName]; ok {
		return r.message(label)
	}
	switch ruleName {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	default:
		return label + " is invalid."
	}
}
