package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog/log"
)

// maxToolRounds bounds the agentic loop. Each round may execute several read
// tools; a well-behaved exchange finishes in two or three.
const maxToolRounds = 8

// WriteToolCall is a mutating action the agent wants to perform. It is never
// executed inside the loop; the caller surfaces it for human confirmation.
type WriteToolCall struct {
	Name string
	Args map[string]any
}

// Outcome is the result of one agent run: either a final text answer or a
// proposed write action.
type Outcome struct {
	Answer    string
	WriteTool *WriteToolCall
}

// Agent drives the OpenAI Responses API tool loop over an invoice ToolRegistry.
type Agent struct {
	client *openai.Client
}

// NewAgent constructs an Agent with the given API key.
func NewAgent(apiKey string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Agent{client: &client}
}

// Run executes the agentic loop: the model calls read tools autonomously
// until it either answers in text or requests a write tool, which terminates
// the loop unexecuted.
func (a *Agent) Run(ctx context.Context, instructions, userText string, reg *ToolRegistry) (*Outcome, error) {
	params := responses.ResponseNewParams{
		Model:        shared.ResponsesModel(shared.ChatModelGPT4o),
		Instructions: param.NewOpt(instructions),
		Tools:        reg.ToOpenAITools(),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(userText),
		},
	}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.client.Responses.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("openai responses error: %w", err)
		}

		var outputs responses.ResponseInputParam
		for _, item := range resp.Output {
			if item.Type != "function_call" {
				continue
			}
			call := item.AsFunctionCall()

			def, ok := reg.Get(call.Name)
			if !ok {
				outputs = append(outputs, responses.ResponseInputItemParamOfFunctionCallOutput(
					call.CallID, fmt.Sprintf(`{"error":"unknown tool %q"}`, call.Name)))
				continue
			}

			args := map[string]any{}
			if call.Arguments != "" {
				if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
					outputs = append(outputs, responses.ResponseInputItemParamOfFunctionCallOutput(
						call.CallID, fmt.Sprintf(`{"error":"invalid arguments: %s"}`, err)))
					continue
				}
			}

			if !def.IsReadTool {
				// A write tool ends the run; the pending function call is
				// abandoned and a fresh conversation starts after confirmation.
				return &Outcome{WriteTool: &WriteToolCall{Name: call.Name, Args: args}}, nil
			}

			result, err := def.Handler(ctx, args)
			if err != nil {
				log.Warn().Err(err).Str("tool", call.Name).Msg("read tool failed")
				result = fmt.Sprintf(`{"error":%q}`, err.Error())
			}
			outputs = append(outputs, responses.ResponseInputItemParamOfFunctionCallOutput(call.CallID, result))
		}

		if len(outputs) == 0 {
			return &Outcome{Answer: resp.OutputText()}, nil
		}

		params = responses.ResponseNewParams{
			Model:              shared.ResponsesModel(shared.ChatModelGPT4o),
			Instructions:       param.NewOpt(instructions),
			Tools:              reg.ToOpenAITools(),
			PreviousResponseID: param.NewOpt(resp.ID),
			Input: responses.ResponseNewParamsInputUnion{
				OfInputItemList: outputs,
			},
		}
	}

	return nil, fmt.Errorf("agent exceeded %d tool rounds without answering", maxToolRounds)
}
