package audit

import "testing"

func TestNormalizeEventName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"deleteUser", "DELETE_USER"},
		{"UserService.Login", "LOGIN"},
		{"USER_LOGIN", "USER_LOGIN"},
		{"data-export", "DATA_EXPORT"},
		{"sign in", "SIGN_IN"},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeEventName(tt.input); got != tt.want {
				t.Errorf("NormalizeEventName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEventRegistry_Resolve(t *testing.T) {
	r := DefaultEventRegistry()

	tests := []struct {
		name     string
		wantKind string
		wantSev  Severity
	}{
		{"USER_LOGIN", "USER_LOGIN", SeverityLow},
		{"AuthService.login", "USER_LOGIN", SeverityLow},
		{"deleteUser", "USER_DELETED", SeverityHigh},
		{"exportData", "DATA_EXPORTED", SeverityMedium},
		{"somethingUnheardOf", "CUSTOM_EVENT", SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := r.Resolve(tt.name)
			if kind.Name != tt.wantKind {
				t.Errorf("Resolve(%q).Name = %q, want %q", tt.name, kind.Name, tt.wantKind)
			}
			if kind.Severity != tt.wantSev {
				t.Errorf("Resolve(%q).Severity = %s, want %s", tt.name, kind.Severity, tt.wantSev)
			}
		})
	}
}

func TestEventRegistry_RegisterDuplicate(t *testing.T) {
	r := NewEventRegistry(CustomEvent)

	if err := r.Register(EventKind{Name: "report_viewed", Aliases: []string{"viewReport"}}); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if err := r.Register(EventKind{Name: "VIEW_REPORT"}); err == nil {
		t.Error("expected error registering a name already used as an alias")
	}

	kind, ok := r.Lookup("viewReport")
	if !ok {
		t.Fatal("expected alias lookup to succeed")
	}
	if kind.Name != "REPORT_VIEWED" {
		t.Errorf("alias resolved to %q, want REPORT_VIEWED", kind.Name)
	}
	if kind.Severity != SeverityMedium {
		t.Errorf("expected default severity MEDIUM, got %s", kind.Severity)
	}
}

func TestEventRegistry_RegisterBlank(t *testing.T) {
	r := NewEventRegistry(CustomEvent)
	if err := r.Register(EventKind{Name: " "}); err == nil {
		t.Error("expected error for blank kind name")
	}
}
