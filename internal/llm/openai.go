package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAIEngine generates text with the OpenAI Responses API.
type OpenAIEngine struct {
	client *openai.Client
}

// NewOpenAIEngine creates an engine authenticated with apiKey. Extra options
// (base URL, HTTP client, retries) are passed to the SDK client.
func NewOpenAIEngine(apiKey string, opts ...option.RequestOption) *OpenAIEngine {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIEngine{client: &client}
}

func (e *OpenAIEngine) Name() string { return "openai" }

// Chat folds system messages into the instructions and sends the rest as the
// input list.
func (e *OpenAIEngine) Chat(ctx context.Context, model string, messages []Message, schema Schema) (string, error) {
	var (
		instructions []string
		input        []responses.ResponseInputItemUnionParam
	)
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			instructions = append(instructions, m.Content)
		case RoleAssistant:
			input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, responses.EasyInputMessageRoleAssistant))
		default:
			input = append(input, responses.ResponseInputItemParamOfMessage(m.Content, responses.EasyInputMessageRoleUser))
		}
	}

	params := responses.ResponseNewParams{
		Model: model,
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: input},
	}
	if len(instructions) > 0 {
		params.Instructions = openai.String(strings.Join(instructions, "\n\n"))
	}
	if schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   "DiaryOutput",
					Schema: schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		}
	}

	resp, err := e.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai responses: %w", err)
	}
	return resp.OutputText(), nil
}

// IsRunning lists models as an authenticated reachability check.
func (e *OpenAIEngine) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := e.client.Models.List(ctx)
	return err == nil
}
