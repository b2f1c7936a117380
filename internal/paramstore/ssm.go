package paramstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

const defaultTimeout = 2 * time.Second

// Options describe how to reach the parameter store.
type Options struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Timeout bounds a single Get call. Zero means 2s.
	Timeout time.Duration
}

// GetParameterAPI is the subset of the SSM API used by SSMClient.
type GetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMClient reads parameters from AWS Systems Manager Parameter Store.
type SSMClient struct {
	api     GetParameterAPI
	timeout time.Duration
}

// New builds the process-wide parameter store client. When opts.Endpoint is
// empty the Disabled client is returned and no AWS configuration is loaded.
func New(ctx context.Context, opts Options) (Client, error) {
	if opts.Endpoint == "" {
		return Disabled{}, nil
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	otelaws.AppendMiddlewares(&cfg.APIOptions)

	api := ssm.NewFromConfig(cfg, func(o *ssm.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	})

	return NewSSMClient(api, opts.Timeout), nil
}

// NewSSMClient wraps an SSM API implementation.
func NewSSMClient(api GetParameterAPI, timeout time.Duration) *SSMClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SSMClient{api: api, timeout: timeout}
}

// Get fetches the decrypted value stored at key.
func (c *SSMClient) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(key),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w: %w", key, ErrUnavailable, err)
	}

	if out == nil || out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	return aws.ToString(out.Parameter.Value), nil
}
