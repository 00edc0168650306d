package objectstore

import "testing"

func TestParseURL(t *testing.T) {
	tests := []struct {
		url  string
		want Location
	}{
		{"s3://bucket", Location{Bucket: "bucket"}},
		{"s3://bucket/", Location{Bucket: "bucket"}},
		{"s3://bucket/prefix/", Location{Bucket: "bucket", Prefix: "prefix/"}},
		{"s3://bucket/path/to/key.jpg", Location{Bucket: "bucket", Key: "path/to/key.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := ParseURL(tt.url)
			if err != nil {
				t.Fatalf("ParseURL(%q) error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ParseURL(%q) = %+v, want %+v", tt.url, got, tt.want)
			}
		})
	}
}

func TestParseURL_Invalid(t *testing.T) {
	for _, bad := range []string{"", "http://bucket/key", "s3://"} {
		if _, err := ParseURL(bad); err == nil {
			t.Errorf("ParseURL(%q) expected error, got nil", bad)
		}
	}
}
