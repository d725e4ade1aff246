package fingerprint

import (
	"strings"
	"testing"
)

func TestNormalizeMessage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Cannot read property 'id' of undefined", "Cannot read property '*' of undefined"},
		{"User 12345 not found", "User * not found"},
		{"Connection to 192.168.1.1:5432 failed", "Connection to *:* failed"},
		{"Invalid UUID: 550e8400-e29b-41d4-a716-446655440000", "Invalid UUID: *"},
		{`expected "foo" got "bar"`, `expected "*" got "*"`},
		{"no variables here", "no variables here"},
	}
	for _, tc := range cases {
		if got := NormalizeMessage(tc.in); got != tc.want {
			t.Errorf("NormalizeMessage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGenerate_StableAcrossVariableData(t *testing.T) {
	t.Parallel()

	frame := func(lineno int) StackFrame {
		return StackFrame{
			Filename: "src/api/users.ts",
			Function: "getUser",
			Lineno:   lineno,
			Colno:    23,
			InApp:    true,
		}
	}

	exc1 := Exception{
		Type:       "TypeError",
		Value:      "Cannot read property 'id' of undefined",
		Stacktrace: []StackFrame{frame(142)},
	}
	exc2 := Exception{
		Type:       "TypeError",
		Value:      "Cannot read property 'name' of undefined",
		Stacktrace: []StackFrame{frame(150)},
	}

	fp1, fp2 := Generate(exc1), Generate(exc2)
	if fp1 != fp2 {
		t.Fatalf("expected identical fingerprints, got %q / %q", fp1, fp2)
	}
	if len(fp1) != hexLength {
		t.Fatalf("fingerprint length = %d, want %d", len(fp1), hexLength)
	}
}

func TestGenerate_DifferentTypesNeverCollide(t *testing.T) {
	t.Parallel()

	frames := []StackFrame{{Filename: "app.js", Function: "handler", InApp: true}}
	a := Generate(Exception{Type: "TypeError", Value: "boom", Stacktrace: frames})
	b := Generate(Exception{Type: "RangeError", Value: "boom", Stacktrace: frames})
	if a == b {
		t.Fatalf("different exception types must not collide")
	}
}

func TestGenerate_OnlyFirstFiveInAppFrames(t *testing.T) {
	t.Parallel()

	frames := make([]StackFrame, 0, 8)
	for i := 0; i < 6; i++ {
		frames = append(frames, StackFrame{Filename: "app.js", Function: "fn", InApp: true})
	}
	base := Generate(Exception{Type: "Error", Value: "x", Stacktrace: frames})

	// A differing 6th in-app frame must not change the fingerprint.
	frames[5].Function = "other"
	if got := Generate(Exception{Type: "Error", Value: "x", Stacktrace: frames}); got != base {
		t.Fatalf("sixth in-app frame changed the fingerprint")
	}

	// A differing 5th frame must.
	frames[4].Function = "other"
	if got := Generate(Exception{Type: "Error", Value: "x", Stacktrace: frames}); got == base {
		t.Fatalf("fifth in-app frame did not change the fingerprint")
	}
}

func TestGenerate_LibraryFramesIgnored(t *testing.T) {
	t.Parallel()

	appOnly := Generate(Exception{
		Type:       "Error",
		Value:      "x",
		Stacktrace: []StackFrame{{Filename: "app.js", Function: "main", InApp: true}},
	})
	withLib := Generate(Exception{
		Type:  "Error",
		Value: "x",
		Stacktrace: []StackFrame{
			{Filename: "node_modules/express/lib/router.js", Function: "dispatch", InApp: false},
			{Filename: "app.js", Function: "main", InApp: true},
		},
	})
	if appOnly != withLib {
		t.Fatalf("library frames must not affect grouping")
	}
}

func TestGenerateFromMessage(t *testing.T) {
	t.Parallel()

	a := GenerateFromMessage("database connection lost")
	b := GenerateFromMessage("database connection lost")
	c := GenerateFromMessage("something else")
	if a != b {
		t.Fatalf("same message must hash the same")
	}
	if a == c {
		t.Fatalf("distinct messages collided")
	}
	if len(a) != hexLength {
		t.Fatalf("fingerprint length = %d, want %d", len(a), hexLength)
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	got := Title(Exception{Type: "TypeError", Value: "boom"})
	if got != "TypeError: boom" {
		t.Fatalf("Title = %q", got)
	}

	long := strings.Repeat("a", 150)
	title := Title(Exception{Type: "Error", Value: long})
	if !strings.HasSuffix(title, "...") {
		t.Fatalf("long title not truncated: %q", title)
	}
	if want := "Error: " + strings.Repeat("a", 97) + "..."; title != want {
		t.Fatalf("Title = %q, want %q", title, want)
	}

	// Truncation must never split a multibyte rune.
	multibyte := strings.Repeat("é", 150)
	tm := TruncateMessage(multibyte)
	if !strings.HasSuffix(tm, "...") {
		t.Fatalf("multibyte title not truncated: %q", tm)
	}
	if strings.Contains(tm, "�") {
		t.Fatalf("truncation split a rune: %q", tm)
	}
}
