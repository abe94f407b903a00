package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeImageURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://a//b", "https://a/b"},
		{"https://a.com//img.png", "https://a.com/img.png"},
		{"https://cdn.example.com///listings////42/cover.jpg", "https://cdn.example.com/listings/42/cover.jpg"},
		{"http://example.com/a/b.png", "http://example.com/a/b.png"},
		{"s3://bucket//key", "s3://bucket/key"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizeImageURL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeImageURL(got), "normalization should be idempotent")
		})
	}
}

func TestNormalizeImageURLs(t *testing.T) {
	assert.Nil(t, NormalizeImageURLs(nil))

	in := []string{"https://a//b", "https://c/d"}
	out := NormalizeImageURLs(in)
	assert.Equal(t, []string{"https://a/b", "https://c/d"}, out)
	assert.Equal(t, "https://a//b", in[0], "input slice must not be modified")
}
