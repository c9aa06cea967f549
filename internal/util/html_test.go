package util

import (
	"strings"
	"testing"
)

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "Bring snacks", "Bring snacks"},
		{"paragraphs", "<p>First</p><p>Second</p>", "First\nSecond"},
		{"line breaks", "a<br>b<br/>c", "a\nb\nc"},
		{"list", "<ul><li>one</li><li>two</li></ul>", "• one\n• two"},
		{"entities", "Tom &amp; Jerry &lt;3", "Tom & Jerry <3"},
		{"anchor", `Join <a href="https://meet.example.com/x">here</a>`, "Join here (https://meet.example.com/x)"},
		{"bare anchor", `<a href="https://x.example.com">https://x.example.com</a>`, "https://x.example.com"},
		{"google redirect", `<a href="https://www.google.com/url?q=https://real.example.com&amp;sa=D">doc</a>`, "doc (https://real.example.com)"},
		{"style stripped", "<style>p{color:red}</style><p>Hi</p>", "Hi"},
		{"blank lines collapsed", "a<br><br><br><br>b", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTMLToText(tt.in); got != tt.want {
				t.Errorf("HTMLToText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	got := TruncateText("a rather long meeting title", 10)
	if !strings.HasSuffix(got, "…") || len([]rune(got)) != 10 {
		t.Errorf("got %q", got)
	}
	if got := TruncateText("anything", 0); got != "anything" {
		t.Errorf("maxLen 0 should disable truncation, got %q", got)
	}
}

func TestMakeHyperlink(t *testing.T) {
	link := MakeHyperlink("https://example.com", "site")
	if !strings.Contains(link, "https://example.com") || !strings.Contains(link, "site") {
		t.Errorf("unexpected hyperlink %q", link)
	}
}
