package ytdlp

import (
	"errors"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "standard watch URL",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "watch URL without www",
			url:  "https://youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "mobile URL",
			url:  "https://m.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "short URL",
			url:  "https://youtu.be/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "short URL with query params",
			url:  "https://youtu.be/dQw4w9WgXcQ?t=42",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "shorts URL",
			url:  "https://www.youtube.com/shorts/abc123XYZ_-",
			want: "abc123XYZ_-",
		},
		{
			name: "embed URL",
			url:  "https://www.youtube.com/embed/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "live URL",
			url:  "https://www.youtube.com/live/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "watch URL with extra params",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&index=2",
			want: "dQw4w9WgXcQ",
		},
		{
			name:    "missing video id",
			url:     "https://www.youtube.com/watch",
			wantErr: true,
		},
		{
			name:    "non-youtube host",
			url:     "https://vimeo.com/12345",
			wantErr: true,
		},
		{
			name:    "empty string",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractVideoID(%q) = %q, want error", tt.url, got)
				}
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("ExtractVideoID(%q) error = %v, want ErrInvalidURL", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractVideoID(%q) unexpected error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	base := errors.New("exit status 1")

	tests := []struct {
		name     string
		stderr   string
		wantIs   error
		wantMsg  string
	}{
		{
			name:    "private video",
			stderr:  "ERROR: [youtube] abc: Private video. Sign in if you've been granted access",
			wantIs:  ErrVideoPrivate,
			wantMsg: "[youtube] abc: Private video. Sign in if you've been granted access",
		},
		{
			name:   "unavailable video",
			stderr: "ERROR: [youtube] abc: Video unavailable",
			wantIs: ErrVideoUnavailable,
		},
		{
			name:   "age restricted",
			stderr: "ERROR: [youtube] abc: Sign in to confirm your age",
			wantIs: ErrAgeRestricted,
		},
		{
			name:   "network failure",
			stderr: "ERROR: Unable to download webpage: <urlopen error timed out>",
			wantIs: ErrNetworkError,
		},
		{
			name:   "unclassified falls back to exec error",
			stderr: "ERROR: something novel happened",
			wantIs: base,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("https://youtu.be/abc", tt.stderr, base)
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("classifyError() = %v, want errors.Is %v", err, tt.wantIs)
			}
			var de *DownloadError
			if !errors.As(err, &de) {
				t.Fatalf("classifyError() did not return *DownloadError: %T", err)
			}
			if de.URL != "https://youtu.be/abc" {
				t.Errorf("DownloadError.URL = %q", de.URL)
			}
			if tt.wantMsg != "" && de.Message != tt.wantMsg {
				t.Errorf("DownloadError.Message = %q, want %q", de.Message, tt.wantMsg)
			}
		})
	}
}

func TestFirstErrorLine(t *testing.T) {
	stderr := "WARNING: some warning\nERROR: Video unavailable\nERROR: second error\n"
	if got := firstErrorLine(stderr); got != "Video unavailable" {
		t.Errorf("firstErrorLine() = %q, want %q", got, "Video unavailable")
	}
	if got := firstErrorLine("no errors here"); got != "" {
		t.Errorf("firstErrorLine() = %q, want empty", got)
	}
}
