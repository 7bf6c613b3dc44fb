package export

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/keithlinneman/socialblog/internal/cryptoutil"
	"github.com/keithlinneman/socialblog/internal/xerrors"
)

// PutObjectAPI is the slice of *s3.Client used by S3Sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads objects to Bucket under Prefix. Each object carries its
// SHA-256 as x-amz-meta-sha256.
type S3Sink struct {
	Client PutObjectAPI
	Bucket string
	Prefix string
}

func (s *S3Sink) key(k string) string {
	p := strings.Trim(s.Prefix, "/")
	if p == "" {
		return k
	}
	return path.Join(p, k)
}

func (s *S3Sink) Put(ctx context.Context, obj Object) error {
	key := s.key(obj.Key)
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(obj.Body),
		ContentLength: aws.Int64(int64(len(obj.Body))),
		ContentType:   aws.String(obj.ContentType),
		CacheControl:  aws.String(obj.CacheControl),
		Metadata:      map[string]string{"sha256": cryptoutil.SHA256Hex(obj.Body)},
	})
	if err != nil {
		return xerrors.Wrapf(err, "put s3://%s/%s", s.Bucket, key)
	}
	return nil
}

// DirSink writes objects below a local directory, for previews and tests.
type DirSink struct {
	Dir string
}

func (d *DirSink) Put(_ context.Context, obj Object) error {
	// slugs reach keys unvalidated; this is the only thing keeping
	// writes inside Dir
	if !filepath.IsLocal(filepath.FromSlash(obj.Key)) {
		return xerrors.Newf("refusing non-local key %q", obj.Key)
	}
	dst := filepath.Join(d.Dir, filepath.FromSlash(obj.Key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return xerrors.Wrapf(err, "mkdir %s", filepath.Dir(dst))
	}
	if err := os.WriteFile(dst, obj.Body, 0o644); err != nil {
		return xerrors.Wrapf(err, "write %s", dst)
	}
	return nil
}
