package schemasource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/arkemis/dbufdb/internal/loader"
)

// S3Source reads a declaration batch from an S3 object, grounded on
// the teacher's schema/reg_s3.go S3Storage.Get: a thin
// client.GetObject wrapper, no retries or caching of its own.
type S3Source struct {
	client *s3.Client
}

func NewS3Source(client *s3.Client) *S3Source {
	return &S3Source{client: client}
}

// Fetch expects path in "bucket/key" form (the "s3://" scheme prefix
// is already stripped by Open).
func (s *S3Source) Fetch(ctx context.Context, path string) ([]loader.Declaration, error) {
	bucket, key, ok := strings.Cut(path, "/")
	if !ok {
		return nil, fmt.Errorf("schemasource: malformed s3 path %q, want bucket/key", path)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("schemasource: get s3://%s: %w", path, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("schemasource: read s3://%s: %w", path, err)
	}
	return decodeBatch(data)
}
