package objectstore

import (
	"fmt"
	"strings"
)

// Location is a parsed "s3://<bucket>[/<path>]" URL. A trailing slash means
// Prefix is a prefix; no trailing slash means Key is an exact object key.
// An empty path means the bucket root (Prefix == "").
type Location struct {
	Bucket string
	Prefix string
	Key    string
}

// ParseURL parses an object-store URL of the form "s3://<bucket>[/<path>]".
func ParseURL(url string) (Location, error) {
	const scheme = "s3://"
	if !strings.HasPrefix(url, scheme) {
		return Location{}, fmt.Errorf("objectstore: invalid url %q: must start with %q", url, scheme)
	}
	rest := url[len(scheme):]
	if rest == "" {
		return Location{}, fmt.Errorf("objectstore: invalid url %q: missing bucket", url)
	}

	bucket, path, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("objectstore: invalid url %q: missing bucket", url)
	}

	if path == "" {
		return Location{Bucket: bucket}, nil
	}
	if strings.HasSuffix(rest, "/") {
		return Location{Bucket: bucket, Prefix: path}, nil
	}
	return Location{Bucket: bucket, Key: path}, nil
}
