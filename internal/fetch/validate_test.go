package fetch

import "testing"

func TestURLValidatorAcceptsHTTPAndHTTPS(t *testing.T) {
	v := NewURLValidator(nil)
	for _, raw := range []string{
		"http://img.example.com/cat.png",
		"https://img.example.com/cat.png?size=large",
	} {
		if err := v.Validate(raw); err != nil {
			t.Fatalf("expected %s to validate, got %v", raw, err)
		}
	}
}

func TestURLValidatorRejectsMalformedInput(t *testing.T) {
	v := NewURLValidator(nil)
	cases := []string{
		"",
		"   ",
		"ftp://img.example.com/cat.png",
		"file:///etc/passwd",
		"not a url at all",
		"https://",
	}
	for _, raw := range cases {
		if err := v.Validate(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestURLValidatorHostAllowList(t *testing.T) {
	v := NewURLValidator([]string{"Img.Example.com"})

	if err := v.Validate("https://img.example.com/a.png"); err != nil {
		t.Fatalf("expected allow-listed host to pass, got %v", err)
	}
	if err := v.Validate("https://IMG.EXAMPLE.COM:8443/a.png"); err != nil {
		t.Fatalf("expected host match to ignore case and port, got %v", err)
	}
	if err := v.Validate("https://evil.example.com/a.png"); err == nil {
		t.Fatal("expected non-listed host to be rejected")
	}
}

func TestURLValidatorAllowListEntryWithPort(t *testing.T) {
	v := NewURLValidator([]string{"img.example.com:8443"})

	if err := v.Validate("https://img.example.com/a.png"); err != nil {
		t.Fatalf("expected port-carrying entry to match by hostname, got %v", err)
	}
	if err := v.Validate("https://evil.example.com/a.png"); err == nil {
		t.Fatal("expected non-listed host to be rejected")
	}
}
