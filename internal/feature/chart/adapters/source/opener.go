package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// LocalOpener opens files on the local filesystem.
// Relative locations resolve under BaseDir.
type LocalOpener struct {
	BaseDir string
}

// NewLocalOpener returns a LocalOpener rooted at baseDir.
func NewLocalOpener(baseDir string) *LocalOpener {
	return &LocalOpener{BaseDir: baseDir}
}

// Open opens location for reading.
func (o *LocalOpener) Open(_ context.Context, location string) (io.ReadCloser, error) {
	p := location
	if !filepath.IsAbs(p) {
		p = filepath.Join(o.BaseDir, p)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ObjectGetter is the subset of the S3 client used to fetch source objects.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Opener opens s3://bucket/key locations.
type S3Opener struct {
	client ObjectGetter
}

// NewS3Opener returns an S3Opener using client.
func NewS3Opener(client ObjectGetter) *S3Opener {
	return &S3Opener{client: client}
}

// Open fetches the object named by location.
func (o *S3Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := parseS3Location(location)
	if err != nil {
		return nil, err
	}
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return out.Body, nil
}

func parseS3Location(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 location: %w", err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 location %q", location)
	}
	return u.Host, key, nil
}

// RoutingOpener dispatches s3:// locations to S3 and everything else to Local.
type RoutingOpener struct {
	Local Opener
	S3    Opener // nil when object storage is not configured
}

// Open opens location with the opener matching its scheme.
func (o *RoutingOpener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if strings.HasPrefix(location, s3Scheme) {
		if o.S3 == nil {
			return nil, errors.New("s3 locations are not configured")
		}
		return o.S3.Open(ctx, location)
	}
	return o.Local.Open(ctx, location)
}
