// Package validation validates entity payloads and configuration structs.
//
// Struct tags are checked with go-playground/validator; field names in the
// resulting error come from the json tag so they match the wire payload:
//
//	type Person struct {
//	    FirstName string `json:"firstName" validate:"required,max=100"`
//	}
//	err := validation.Validate(p)
//
// Handlers that inspect path parameters use the collecting Validator:
//
//	v := validation.New()
//	v.Required("id", raw).Custom(id > 0, "id", "must be positive")
//	err := v.Validate()
package validation
