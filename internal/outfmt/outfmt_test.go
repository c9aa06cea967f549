package outfmt

import (
	"bytes"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeText, false},
		{"text", ModeText, false},
		{" JSON ", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("Parse(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteJSONDoesNotEscapeHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, map[string]string{"url": "https://x.example/?a=1&b=2"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "a=1&b=2") {
		t.Errorf("got %s", buf.String())
	}
}

func TestEmitWithJQ(t *testing.T) {
	events := []map[string]any{
		{"title": "Standup", "source": "google"},
		{"title": "Dentist", "source": "local"},
	}

	var buf bytes.Buffer
	if err := Emit(&buf, events, `.[] | select(.source == "google") | .title`); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if got := buf.String(); got != "\"Standup\"\n" {
		t.Errorf("got %q", got)
	}
}

func TestApplyJQErrors(t *testing.T) {
	if _, err := ApplyJQ([]byte(`{}`), ".["); err == nil {
		t.Errorf("expected a parse error")
	}
	if _, err := ApplyJQ([]byte(`{"a":1}`), ".a[0]"); err == nil {
		t.Errorf("expected a runtime error")
	}
	got, err := ApplyJQ([]byte(`[1,2,3]`), "length")
	if err != nil || string(got) != "3" {
		t.Errorf("length = %q, %v", got, err)
	}
}
