package logging

import "testing"

func TestMaskFieldRedactsUnknownKeys(t *testing.T) {
	attr := MaskField("token", "eyJhbGciOiJIUzI1NiJ9.secret")
	if attr.Value.String() != RedactedValue {
		t.Fatalf("expected token value redacted, got %q", attr.Value.String())
	}
	if attr.Key != "token" {
		t.Fatalf("expected key preserved, got %q", attr.Key)
	}
}

func TestMaskFieldPassesAllowlistedKeys(t *testing.T) {
	attr := MaskField("asset", "WETH")
	if attr.Value.String() != "WETH" {
		t.Fatalf("allowlisted key must pass through, got %q", attr.Value.String())
	}
	// Allowlisting is case-insensitive.
	if !IsAllowlisted("ASSET") {
		t.Fatal("expected case-insensitive allowlist lookup")
	}
}

func TestMaskValueLeavesEmptyAlone(t *testing.T) {
	if got := MaskValue(""); got != "" {
		t.Fatalf("empty value must stay empty, got %q", got)
	}
	if got := MaskValue("hunter2"); got != RedactedValue {
		t.Fatalf("expected redaction, got %q", got)
	}
}

func TestRedactionAllowlistNeverContainsSecrets(t *testing.T) {
	for _, key := range RedactionAllowlist() {
		switch key {
		case "token", "secret", "authorization", "password":
			t.Fatalf("sensitive key %q must not be allowlisted", key)
		}
	}
}
