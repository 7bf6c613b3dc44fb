// Package secrets resolves content store keys from SSM Parameter Store so
// they never have to sit in the environment.
package secrets

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/socialblog/internal/log"
	"github.com/keithlinneman/socialblog/internal/xerrors"
)

// ParameterAPI is the slice of *ssm.Client used here.
type ParameterAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type Resolver struct {
	client ParameterAPI
	logger log.Logger
}

func NewResolver(client ParameterAPI, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.Nop()
	}
	return &Resolver{client: client, logger: logger}
}

// Get returns the decrypted, trimmed value of an SSM parameter. An empty
// value is an error.
func (r *Resolver) Get(ctx context.Context, name string) (string, error) {
	if r.client == nil {
		return "", xerrors.Newf("no SSM client for parameter %s", name)
	}
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", name)
	}

	v := strings.TrimSpace(*out.Parameter.Value)
	if v == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", name)
	}

	r.logger.Debug(ctx, "resolved secret from SSM", "param", name)
	return v, nil
}

// Resolve prefers an explicit value, then the named parameter. Both empty
// yields "" without error; callers decide whether the secret is required.
func (r *Resolver) Resolve(ctx context.Context, value, param string) (string, error) {
	if value != "" {
		return value, nil
	}
	if param == "" {
		return "", nil
	}
	return r.Get(ctx, param)
}
