package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Client reads optional prompt settings from SSM Parameter Store. Parameters
// live under a prefix; a missing parameter means "use the built-in default"
// rather than an error.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// LoadOverrides reads the optional model id and prompt framing parameters
// under prefix. Empty return values mean the parameter is absent.
func (c *Client) LoadOverrides(ctx context.Context, prefix string) (modelID, framing string, err error) {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return "", "", errors.New("paramstore: prefix must not be empty")
	}
	modelID, err = c.getOptional(ctx, prefix+"/model_id")
	if err != nil {
		return "", "", err
	}
	framing, err = c.getOptional(ctx, prefix+"/prompt_framing")
	if err != nil {
		return "", "", err
	}
	return modelID, framing, nil
}

// getOptional fetches one parameter, mapping ParameterNotFound to the empty
// string.
func (c *Client) getOptional(ctx context.Context, name string) (string, error) {
	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}
