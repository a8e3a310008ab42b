package reasoning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/verdictlabs/verdict/pkg/domain/reasoning"
	"github.com/xeipuuv/gojsonschema"
)

// repairBudget bounds how many repair turns a structured call may append
// after its first answer.
const repairBudget = 1

// attemptOutcome is the explicit result of one structured attempt.
type attemptOutcome int

const (
	outcomeSuccess attemptOutcome = iota
	outcomeRetryable
	outcomeFatal
)

// StructuredCall runs one reasoning request that must produce JSON matching
// schema, decoding the payload into out. The control flow is a bounded
// attempt loop: each attempt either succeeds, fails fatally (transport
// fault), or fails retryably (parse or validation), in which case a repair
// instruction is appended to the conversation as data and the call is made
// again. The returned error, when non-nil, is always a typed fault.
func StructuredCall(ctx context.Context, provider reasoning.Provider, req reasoning.Request, schema *gojsonschema.Schema, out any) error {
	messages := make([]reasoning.Message, len(req.Messages))
	copy(messages, req.Messages)

	var lastErr error
	for attempt := 0; attempt <= repairBudget; attempt++ {
		attemptReq := req
		attemptReq.Messages = messages

		resp, err := provider.Complete(ctx, attemptReq)
		if err != nil {
			return asFault(err)
		}

		outcome, faultKind, reason := validateAnswer(resp.Text, schema, out)
		switch outcome {
		case outcomeSuccess:
			return nil
		case outcomeFatal:
			return reasoning.NewFault(faultKind, reason)
		case outcomeRetryable:
			lastErr = reasoning.NewFault(faultKind, reason)
			messages = appendRepair(messages, resp.Text, reason)
		}
	}
	return lastErr
}

// validateAnswer classifies one answer: parse failure and schema violations
// are retryable, a decode mismatch against the target type is fatal.
func validateAnswer(text string, schema *gojsonschema.Schema, out any) (attemptOutcome, reasoning.FaultKind, error) {
	raw, _, err := ExtractJSON(text)
	if err != nil {
		return outcomeRetryable, reasoning.FaultParse, err
	}

	if schema != nil {
		result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return outcomeRetryable, reasoning.FaultParse, err
		}
		if !result.Valid() {
			return outcomeRetryable, reasoning.FaultValidation, schemaError(result)
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return outcomeFatal, reasoning.FaultValidation, err
	}
	return outcomeSuccess, "", nil
}

// appendRepair is a pure data transformation: the failed answer plus an
// instruction to return corrected JSON only.
func appendRepair(messages []reasoning.Message, answer string, reason error) []reasoning.Message {
	return append(messages,
		reasoning.Message{Role: reasoning.RoleAssistant, Content: answer},
		reasoning.Message{
			Role: reasoning.RoleUser,
			Content: fmt.Sprintf(
				"The previous answer was rejected: %v. Respond again with only the corrected JSON document, no prose.",
				reason,
			),
		},
	)
}

func schemaError(result *gojsonschema.Result) error {
	if len(result.Errors()) == 0 {
		return fmt.Errorf("schema validation failed")
	}
	first := result.Errors()[0]
	return fmt.Errorf("schema validation failed: %s (%d issue(s) total)", first.String(), len(result.Errors()))
}

// MustCompileSchema compiles a schema literal at package init time.
func MustCompileSchema(schemaJSON string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid schema literal: %v", err))
	}
	return s
}
