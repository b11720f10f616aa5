package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v6"
)

const requestSchemaURL = "chat_request.json"

// Prompt is the user message of a chat turn.
type Prompt struct {
	Content string `json:"content" jsonschema:"description=User message text"`
	ID      string `json:"id" jsonschema:"description=Client message id"`
	Role    string `json:"role" jsonschema:"description=Message role"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Prompt     Prompt `json:"prompt"`
	ThreadID   string `json:"threadId" jsonschema:"description=Conversation thread identifier"`
	ResponseID string `json:"responseId" jsonschema:"description=Client response id"`
}

type requestSchema struct {
	schema *validator.Schema
}

func compileRequestSchema() (*requestSchema, error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	raw, err := json.Marshal(reflector.Reflect(&ChatRequest{}))
	if err != nil {
		return nil, fmt.Errorf("marshal request schema: %w", err)
	}

	doc, err := validator.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal request schema: %w", err)
	}

	if m, ok := doc.(map[string]any); ok {
		delete(m, "$id")
	}

	c := validator.NewCompiler()
	if err := c.AddResource(requestSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add request schema: %w", err)
	}

	schema, err := c.Compile(requestSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}

	return &requestSchema{schema: schema}, nil
}

// decode reads and validates a ChatRequest. Failures are *Error with status
// 422.
func (rs *requestSchema) decode(r *http.Request) (*ChatRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &Error{Status: http.StatusUnprocessableEntity, Detail: fmt.Sprintf("read body: %v", err)}
	}

	payload, err := validator.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Status: http.StatusUnprocessableEntity, Detail: fmt.Sprintf("invalid JSON body: %v", err)}
	}

	if err := rs.schema.Validate(payload); err != nil {
		return nil, &Error{Status: http.StatusUnprocessableEntity, Detail: err.Error()}
	}

	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &Error{Status: http.StatusUnprocessableEntity, Detail: err.Error()}
	}

	return &req, nil
}
