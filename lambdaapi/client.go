// Package lambdaapi is a translation API client that invokes a translator
// AWS Lambda function.
package lambdaapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/minios-linux/dstrans/translate"
	"go.uber.org/zap"
)

// invoker is the part of *lambda.Client the translator uses.
type invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Request is the payload sent to the translator function. Texts are split
// into chunks that the function translates independently.
type Request struct {
	Chunks     [][]string `json:"chunks"`
	SourceLang string     `json:"source_lang"`
	TargetLang string     `json:"target_lang"`
}

// Response is the payload returned by the translator function.
type Response struct {
	Translations [][]string `json:"translations"`
	Error        string     `json:"error,omitempty"`
}

// Options configures a Client.
type Options struct {
	// FunctionName is the translator function name or ARN.
	FunctionName string
	// Region overrides the region from the AWS environment.
	Region string
	// MaxTokens bounds the estimated size of one chunk (0 = DefaultMaxTokens).
	MaxTokens int
	// Logger receives diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// Client translates texts through a Lambda function.
type Client struct {
	lambda       invoker
	functionName string
	maxTokens    int
	logger       *zap.Logger
}

// New loads the AWS configuration from the environment and returns a
// client for opts.FunctionName.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.FunctionName == "" {
		return nil, fmt.Errorf("no translator function name configured")
	}
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newClient(lambda.NewFromConfig(cfg), opts), nil
}

func newClient(inv invoker, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		lambda:       inv,
		functionName: opts.FunctionName,
		maxTokens:    opts.MaxTokens,
		logger:       logger,
	}
}

// TranslateTexts sends texts in one invocation and returns the
// translations in input order.
func (c *Client) TranslateTexts(ctx context.Context, texts []string, sourceLanguage, targetLanguage string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	chunks := ChunkByTokens(texts, c.maxTokens)
	payload, err := json.Marshal(Request{
		Chunks:     chunks,
		SourceLang: sourceLanguage,
		TargetLang: targetLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Debug("invoking translator",
		zap.String("function", c.functionName),
		zap.Int("texts", len(texts)),
		zap.Int("chunks", len(chunks)),
	)
	result, err := c.lambda.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(c.functionName),
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", c.functionName, err)
	}
	if result.FunctionError != nil {
		return nil, fmt.Errorf("lambda error: %s: %s", *result.FunctionError, truncate(string(result.Payload), 500))
	}

	var resp Response
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("translator error: %s", resp.Error)
	}
	if len(resp.Translations) != len(chunks) {
		return nil, fmt.Errorf("translator returned %d chunks, sent %d: %w",
			len(resp.Translations), len(chunks), translate.ErrShapeMismatch)
	}

	out := make([]string, 0, len(texts))
	for i, chunk := range resp.Translations {
		if len(chunk) != len(chunks[i]) {
			return nil, fmt.Errorf("chunk %d: %w", i, &translate.ShapeMismatchError{Want: len(chunks[i]), Got: len(chunk)})
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
