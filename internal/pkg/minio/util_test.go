package minio

import (
	"Warbler/internal/api/config"
	"testing"
)

func TestPublicURLRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{"endpoint", config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "media"}, "http://localhost:9000/media/a/b.jpg"},
		{"ssl", config.MinIOConfig{Endpoint: "cdn.example.com", Bucket: "media", UseSSL: true}, "https://cdn.example.com/media/a/b.jpg"},
		{"public base", config.MinIOConfig{Endpoint: "minio:9000", Bucket: "media", PublicBaseURL: "https://static.example.com/"}, "https://static.example.com/media/a/b.jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Storage{bucket: tc.cfg.Bucket, baseURL: publicBase(tc.cfg)}
			url := s.PublicURL("a/b.jpg")
			if url != tc.want {
				t.Fatalf("PublicURL = %q, want %q", url, tc.want)
			}
			name, ok := s.ObjectName(url)
			if !ok || name != "a/b.jpg" {
				t.Errorf("ObjectName = %q, %v", name, ok)
			}
		})
	}

	s := &Storage{baseURL: "http://localhost:9000/media"}
	if _, ok := s.ObjectName("https://elsewhere.example.com/x.jpg"); ok {
		t.Error("foreign url should not resolve")
	}
}
