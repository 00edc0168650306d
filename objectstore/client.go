// Package objectstore implements the paginated object-store lister (spec
// component C2): streaming object listings with include/exclude globbing,
// and breadth-first common-prefix discovery at a configurable depth.
//
// Credentials, region, and endpoint are resolved the way the teacher's Lode
// S3 backend resolves them: the AWS SDK v2 default credential chain, with
// optional explicit region/endpoint/path-style overrides for S3-compatible
// providers (Cloudflare R2, MinIO, ...).
package objectstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/scicore-run/forge/classify"
)

// Config configures the S3 client. Region/Endpoint/UsePathStyle are the
// same knobs the environment variables in the spec's external-interfaces
// section drive (access/secret key and region/endpoint come from the
// default credential chain; UsePathStyle is required by most
// S3-compatible providers).
type Config struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// s3API is the narrow surface objectstore needs from *s3.Client — exactly
// the ListObjectsV2 method s3.NewListObjectsV2Paginator itself requires
// (s3.ListObjectsV2APIClient). Declaring it here, at the point of use,
// lets client_test.go drive a multi-page, empty-intermediate-level fake
// instead of a real bucket.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Client lists objects and common prefixes from an S3-compatible store.
type Client struct {
	s3 s3API
}

// NewClient builds a Client using the AWS SDK v2 default credential chain.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = &endpoint })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	return &Client{s3: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// Object is one listed item.
type Object struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// StreamParams configures a single StreamObjects call.
type StreamParams struct {
	Bucket    string
	Prefix    string
	Key       string
	Recursive bool
	Include   []string
	Exclude   []string
	MaxFiles  int
}

// OnCommonPrefixes is invoked once per page in non-recursive mode with the
// sub-prefixes discovered at that page, per spec §4.2 ("also yield a single
// commonPrefixes marker per page so planners can see sub-prefixes").
type OnCommonPrefixes func(prefixes []string) error

// StreamObjects walks the paginated listing under params.Bucket/Prefix (or
// params.Key if Prefix is empty), invoking visit for each object that
// passes the include/exclude filters, until MaxFiles is reached or the
// listing is exhausted. In non-recursive mode, onCommonPrefixes (if
// non-nil) is invoked per page with that page's sub-prefixes.
//
// Errors from the store surface directly; there is no retry at this layer.
func (c *Client) StreamObjects(ctx context.Context, params StreamParams, visit func(Object) error, onCommonPrefixes OnCommonPrefixes) error {
	prefix := params.Prefix
	if prefix == "" {
		prefix = params.Key
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(params.Bucket),
		Prefix: aws.String(prefix),
	}
	if !params.Recursive {
		input.Delimiter = aws.String("/")
	}

	emitted := 0
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return classify.Wrap(classify.OpList, params.Bucket+"/"+prefix, err)
		}

		if !params.Recursive && onCommonPrefixes != nil && len(page.CommonPrefixes) > 0 {
			prefixes := make([]string, 0, len(page.CommonPrefixes))
			for _, cp := range page.CommonPrefixes {
				prefixes = append(prefixes, aws.ToString(cp.Prefix))
			}
			if err := onCommonPrefixes(prefixes); err != nil {
				return err
			}
		}

		for _, obj := range page.Contents {
			if params.MaxFiles > 0 && emitted >= params.MaxFiles {
				return nil
			}
			key := aws.ToString(obj.Key)
			if !matches(key, params.Include, params.Exclude) {
				continue
			}
			o := Object{
				Bucket: params.Bucket,
				Key:    key,
				Size:   aws.ToInt64(obj.Size),
				ETag:   aws.ToString(obj.ETag),
			}
			if err := visit(o); err != nil {
				return err
			}
			emitted++
		}
	}
	return nil
}

// ListPrefixesAtDepth breadth-first expands common-prefix children below
// basePrefix, `/`-delimited, depth times, threading a continuation token
// through every page at every level so wide prefixes are never truncated.
// If a level yields no children, the previous level is retained (graceful
// truncation) rather than returning an empty result.
func (c *Client) ListPrefixesAtDepth(ctx context.Context, bucket, basePrefix string, depth int) ([]string, error) {
	level := []string{basePrefix}

	for d := 0; d < depth; d++ {
		var next []string
		for _, p := range level {
			children, err := c.listImmediateChildren(ctx, bucket, p)
			if err != nil {
				return nil, err
			}
			next = append(next, children...)
		}
		if len(next) == 0 {
			break
		}
		level = next
	}

	return level, nil
}

// listImmediateChildren returns every common prefix directly below prefix,
// fully paginated.
func (c *Client) listImmediateChildren(ctx context.Context, bucket, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	var children []string
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify.Wrap(classify.OpList, bucket+"/"+prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			children = append(children, aws.ToString(cp.Prefix))
		}
	}
	return children, nil
}
