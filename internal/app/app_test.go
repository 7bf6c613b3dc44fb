package app

import (
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/keithlinneman/socialblog/internal/cfg"
)

type stubSSM struct {
	values map[string]string
	err    error
	calls  int
}

func (s *stubSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.values[aws.ToString(in.Name)]
	if !ok {
		return &ssm.GetParameterOutput{}, nil
	}
	return &ssm.GetParameterOutput{Parameter: &ssmtypes.Parameter{Value: aws.String(v)}}, nil
}

func testConfig(t *testing.T) cfg.App {
	t.Helper()
	var c cfg.App
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.Register(fs, &c)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}
	c.CosmicBucketSlug = "my-blog"
	c.SiteURL = "https://blog.example.com"
	return c
}

func TestNew_DirectKeys(t *testing.T) {
	conf := testConfig(t)
	conf.CosmicReadKey = "rk"
	stub := &stubSSM{}

	a, err := New(context.Background(), Options{Config: conf, SSM: stub})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Client == nil || a.Store == nil || a.Blog == nil || a.Renderer == nil || a.Social == nil {
		t.Fatalf("incomplete app: %+v", a)
	}
	if a.Client.CanWrite() {
		t.Fatal("no write key configured")
	}
	if a.Telegram.Configured() {
		t.Fatal("telegram should be unconfigured without token")
	}
	if stub.calls != 0 {
		t.Fatalf("SSM called %d times with direct keys", stub.calls)
	}
	if got := a.Renderer.Site().Name; got != "Social Blog" {
		t.Fatalf("site name = %q", got)
	}
}

func TestNew_KeysFromSSM(t *testing.T) {
	conf := testConfig(t)
	conf.CosmicReadKeyParam = "/blog/read"
	conf.CosmicWriteKeyParam = "/blog/write"
	stub := &stubSSM{values: map[string]string{"/blog/read": "rk", "/blog/write": "wk"}}

	a, err := New(context.Background(), Options{Config: conf, SSM: stub})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !a.Client.CanWrite() {
		t.Fatal("write key from SSM not applied")
	}
	if stub.calls != 2 {
		t.Fatalf("SSM calls = %d, want 2", stub.calls)
	}
}

func TestNew_SSMFailure(t *testing.T) {
	conf := testConfig(t)
	conf.CosmicReadKeyParam = "/blog/read"

	_, err := New(context.Background(), Options{Config: conf, SSM: &stubSSM{err: errors.New("AccessDenied")}})
	if err == nil || !strings.Contains(err.Error(), "resolve read key") {
		t.Fatalf("err = %v", err)
	}
}

func TestNew_MissingReadKey(t *testing.T) {
	conf := testConfig(t)
	if _, err := New(context.Background(), Options{Config: conf, SSM: &stubSSM{}}); err == nil {
		t.Fatal("expected error without a read key")
	}
}

func TestAWSConfig_Override(t *testing.T) {
	conf := testConfig(t)
	conf.CosmicReadKey = "rk"
	want := aws.Config{Region: "eu-west-1"}

	a, err := New(context.Background(), Options{Config: conf, AWSConfig: &want})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := a.AWSConfig(context.Background())
	if err != nil || got.Region != "eu-west-1" {
		t.Fatalf("AWSConfig = %+v, %v", got.Region, err)
	}
}
