package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAIClient calls the OpenAI Chat Completions API.
type OpenAIClient struct {
	model  openai.ChatModel
	seed   int64
	client *openai.Client
}

const defaultChatTemperature = 0.0

// NewOpenAIClient builds a client against api.openai.com. The SDK's own
// retries are disabled: every call is a single round-trip.
func NewOpenAIClient(apiKey string, model openai.ChatModel, seed int64, opts ...option.RequestOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	cli := openai.NewClient(reqOpts...)
	return &OpenAIClient{
		model:  model,
		seed:   seed,
		client: &cli,
	}, nil
}

// Model returns the chat model requests are sent to.
func (c *OpenAIClient) Model() string {
	return string(c.model)
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("nil openai client")
	}
	resp, err := c.client.Chat.Completions.New(ctx, c.params(req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) params(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    buildMessages(req.System, req.User),
		Seed:        openai.Int(c.seed),
		Temperature: openai.Float(defaultChatTemperature),
	}
	if f := req.Format; f != nil {
		if f.Schema == nil {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			}
		} else {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
					JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:   f.Name,
						Schema: f.Schema,
						Strict: openai.Bool(true),
					},
				},
			}
		}
	}
	return params
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}

// IsFatal reports whether err must abort the whole audit instead of
// skipping the current page: cancellation, or an API status that will fail
// identically for every remaining request.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return true
		}
	}
	return false
}
