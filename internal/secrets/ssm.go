package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/smithy-go"
)

const defaultRegion = "us-east-1"

// SSMAPI is the subset of the SSM client used by SSMStore.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// SSMStore keeps secrets in AWS Systems Manager Parameter Store.
type SSMStore struct {
	api SSMAPI
}

var _ Store = (*SSMStore)(nil)

// NewSSMStore builds an SSM client from the default AWS credential chain.
// endpoint overrides the service URL (LocalStack and similar).
func NewSSMStore(ctx context.Context, region, endpoint string) (*SSMStore, error) {
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var opts []func(*ssm.Options)
	if endpoint != "" {
		opts = append(opts, func(o *ssm.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return NewSSMStoreWithAPI(ssm.NewFromConfig(awsCfg, opts...)), nil
}

// NewSSMStoreWithAPI wraps an existing SSM client.
func NewSSMStoreWithAPI(api SSMAPI) *SSMStore {
	return &SSMStore{api: api}
}

// Get reads a parameter, decrypting SecureString values.
func (s *SSMStore) Get(ctx context.Context, name string) (string, error) {
	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if isSSMNotFound(err) {
			return "", notFound(name)
		}
		return "", fmt.Errorf("ssm get %s: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", notFound(name)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// Put writes a String parameter, overwriting any existing value.
func (s *SSMStore) Put(ctx context.Context, name, value string) error {
	_, err := s.api.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      types.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("ssm put %s: %w", name, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources.
func (s *SSMStore) Close() error { return nil }

func isSSMNotFound(err error) bool {
	var pnf *types.ParameterNotFound
	if errors.As(err, &pnf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ParameterNotFound", "ResourceNotFoundException":
			return true
		}
	}
	return false
}
