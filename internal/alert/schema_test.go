package alert

import "testing"

func TestParseCondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, c Condition)
	}{
		{
			name: "new issue bare",
			raw:  `{"type":"new_issue"}`,
			check: func(t *testing.T, c Condition) {
				if c.Type != TriggerNewIssue || c.Level != "" {
					t.Fatalf("condition = %+v", c)
				}
			},
		},
		{
			name: "new issue with level",
			raw:  `{"type":"new_issue","level":"fatal"}`,
			check: func(t *testing.T, c Condition) {
				if c.Level != "fatal" {
					t.Fatalf("level = %q", c.Level)
				}
			},
		},
		{
			name: "issue frequency",
			raw:  `{"type":"issue_frequency","threshold":10,"window_minutes":5}`,
			check: func(t *testing.T, c Condition) {
				if c.Threshold != 10 || c.WindowMinutes != 5 {
					t.Fatalf("condition = %+v", c)
				}
			},
		},
		{
			name:    "issue frequency missing window",
			raw:     `{"type":"issue_frequency","threshold":10}`,
			wantErr: true,
		},
		{
			name: "monitor down scoped",
			raw:  `{"type":"monitor_down","monitor_id":"mon-1"}`,
			check: func(t *testing.T, c Condition) {
				if c.MonitorID != "mon-1" {
					t.Fatalf("monitor id = %q", c.MonitorID)
				}
			},
		},
		{name: "monitor recovery", raw: `{"type":"monitor_recovery"}`},
		{name: "unknown type", raw: `{"type":"full_moon"}`, wantErr: true},
		{name: "not json", raw: `nope`, wantErr: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c, err := ParseCondition([]byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseCondition(%q) succeeded, want error", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCondition(%q): %v", tc.raw, err)
			}
			if tc.check != nil {
				tc.check(t, c)
			}
		})
	}
}

func TestParseActions(t *testing.T) {
	t.Parallel()

	ids, err := ParseActions([]byte(`["chan-1","chan-2"]`))
	if err != nil {
		t.Fatalf("ParseActions: %v", err)
	}
	if len(ids) != 2 || ids[0] != "chan-1" {
		t.Fatalf("ids = %v", ids)
	}
	if _, err := ParseActions([]byte(`{"not":"a list"}`)); err == nil {
		t.Fatal("object accepted as actions")
	}
}

func TestSignWebhookBody(t *testing.T) {
	t.Parallel()

	// Fixed vector so receiver implementations can be checked against it.
	got := SignWebhookBody([]byte(`{"title":"x"}`), "s3cret")
	if len(got) != 64 {
		t.Fatalf("signature length = %d, want 64 hex chars", len(got))
	}
	if got != SignWebhookBody([]byte(`{"title":"x"}`), "s3cret") {
		t.Fatal("signature not deterministic")
	}
	if got == SignWebhookBody([]byte(`{"title":"x"}`), "other") {
		t.Fatal("secret does not affect signature")
	}
}
