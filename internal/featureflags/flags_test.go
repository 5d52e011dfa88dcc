package featureflags

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		raw          string
		wantValue    bool
		wantSet      bool
		wantDisabled bool
	}{
		{raw: "", wantValue: false, wantSet: false, wantDisabled: false},
		{raw: "true", wantValue: true, wantSet: true, wantDisabled: false},
		{raw: " ON ", wantValue: true, wantSet: true, wantDisabled: false},
		{raw: "false", wantValue: false, wantSet: true, wantDisabled: true},
		{raw: "0", wantValue: false, wantSet: true, wantDisabled: true},
		{raw: "maybe", wantValue: false, wantSet: false, wantDisabled: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("FLAG_NOTIFICATIONS", tt.raw)
			v, set := Lookup("notifications")
			if v != tt.wantValue || set != tt.wantSet {
				t.Fatalf("Lookup = (%v, %v), want (%v, %v)", v, set, tt.wantValue, tt.wantSet)
			}
			if Disabled("notifications") != tt.wantDisabled {
				t.Fatalf("Disabled = %v, want %v", !tt.wantDisabled, tt.wantDisabled)
			}
		})
	}
}
