package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/terabiome/vergemcp/internal/infrastructure/verge"
	"github.com/terabiome/vergemcp/internal/service"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindArguments decodes the tool arguments into target and validates them.
func bindArguments(request mcp.CallToolRequest, target any) error {
	if err := request.BindArguments(target); err != nil {
		return &service.ValidationError{Message: fmt.Sprintf("malformed arguments: %v", err)}
	}

	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return &service.ValidationError{Message: err.Error()}
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return &service.ValidationError{
			Field:   verrs[0].Field(),
			Message: strings.Join(msgs, "; "),
		}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}

// successResult serializes a result payload as indented JSON text.
func successResult(payload any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return FailureResult(fmt.Errorf("encode result: %w", err))
	}
	return mcp.NewToolResultText(string(data))
}

// FailureResult converts any error into an error-flagged result carrying
// {success:false, error, ...context}.
func FailureResult(err error) *mcp.CallToolResult {
	payload := map[string]any{
		"success": false,
		"error":   err.Error(),
	}

	var (
		detailed  service.DetailedError
		apiErr    *verge.APIError
		decodeErr *verge.DecodeError
	)
	switch {
	case errors.As(err, &detailed):
		for k, v := range detailed.Details() {
			payload[k] = v
		}
	case errors.As(err, &apiErr):
		payload["category"] = "backend"
		payload["status_code"] = apiErr.StatusCode
	case errors.As(err, &decodeErr):
		payload["category"] = "decode"
	case errors.Is(err, verge.ErrNoCredentials), errors.Is(err, verge.ErrNotFound):
		payload["category"] = "backend"
	}

	data, mErr := json.MarshalIndent(payload, "", "  ")
	if mErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(data))
}

// respond maps a service call's outcome onto a tool result.
func respond(result any, err error) *mcp.CallToolResult {
	if err != nil {
		return FailureResult(err)
	}
	return successResult(result)
}
