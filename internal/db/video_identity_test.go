package db

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "watch URL is kept",
			in:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "short URL expands to watch form",
			in:   "https://youtu.be/dQw4w9WgXcQ",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "mobile host and tracking params stripped",
			in:   "http://m.youtube.com/watch?v=dQw4w9WgXcQ&feature=share&t=42",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "playlist context dropped",
			in:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&index=4",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "  https://youtu.be/dQw4w9WgXcQ  ",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "non-youtube URL keeps path",
			in:   "https://Example.COM/videos/1?utm_source=x",
			want: "https://example.com/videos/1",
		},
		{
			name: "unparseable input returned trimmed",
			in:   " not a url ",
			want: "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "Some TITLE", want: "some title"},
		{name: "collapses whitespace", in: "  a   b\tc  ", want: "a b c"},
		{name: "transliterates accents", in: "Café Müller", want: "cafe muller"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCalculateIdentityHash(t *testing.T) {
	a := CalculateIdentityHash("https://youtu.be/dQw4w9WgXcQ")
	b := CalculateIdentityHash("https://www.youtube.com/watch?v=dQw4w9WgXcQ&feature=share")
	if a != b {
		t.Errorf("equivalent URLs should hash identically: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16", len(a))
	}

	c := CalculateIdentityHash("https://www.youtube.com/watch?v=other")
	if a == c {
		t.Error("different videos should not collide")
	}
}
