package upload

import "testing"

func TestPublicIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{
			"https://res.cloudinary.com/demo/image/upload/v1700000000/fit-check/wardrobe/abc123.png",
			"fit-check/wardrobe/abc123",
		},
		{
			"https://res.cloudinary.com/demo/image/upload/c_fit,w_800,h_800/v1700000000/fit-check/wardrobe/abc123.jpg",
			"fit-check/wardrobe/abc123",
		},
		{
			"https://res.cloudinary.com/demo/image/upload/sample.jpg",
			"sample",
		},
		{"https://example.com/not-cloudinary.png", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := PublicIDFromURL(tt.url); got != tt.want {
			t.Errorf("PublicIDFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
