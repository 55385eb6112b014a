package phone

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare ten digits", in: "5551234567", want: "+15551234567"},
		{name: "formatted us", in: "(555) 123-4567", want: "+15551234567"},
		{name: "already e164", in: "+15551234567", want: "+15551234567"},
		{name: "eleven with country code", in: "15551234567", want: "+15551234567"},
		{name: "international", in: "+447911123456", want: "+447911123456"},
		{name: "empty", in: "", want: ""},
		{name: "no digits", in: "abc", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	if !Equal("(555) 123-4567", "+15551234567") {
		t.Fatal("expected formatted and e164 forms to match")
	}
	if Equal("", "") {
		t.Fatal("empty numbers must never match")
	}
	if Equal("+15551234567", "+155512345") {
		t.Fatal("prefix must not match")
	}
}
