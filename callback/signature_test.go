package callback

import "testing"

func TestParseSignatureValid(t *testing.T) {
	sig, err := ParseSignature("foo-bar($arg, $opt: 1, $rest...)")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if sig.CanonicalName != "foo-bar" {
		t.Fatalf("CanonicalName = %q, want foo-bar", sig.CanonicalName)
	}
	if len(sig.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(sig.Params))
	}
	if sig.Params[1].Name != "opt" || !sig.Params[1].HasDefault || sig.Params[1].DefaultRaw != "1" {
		t.Fatalf("unexpected param 1: %+v", sig.Params[1])
	}
	if sig.RestParam != "rest" {
		t.Fatalf("RestParam = %q, want rest", sig.RestParam)
	}
}

func TestDashNormalizationMatchesEitherSpelling(t *testing.T) {
	registered, err := ParseSignature("foo-bar()")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if registered.CanonicalName != Normalize("foo_bar") {
		t.Fatalf("foo-bar and foo_bar should normalize identically")
	}

	registeredUnderscore, err := ParseSignature("foo_bar()")
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if registered.CanonicalName != registeredUnderscore.CanonicalName {
		t.Fatalf("dash and underscore registrations should share a canonical name: %q vs %q",
			registered.CanonicalName, registeredUnderscore.CanonicalName)
	}
}

func TestParseSignatureRejectsInvalidForms(t *testing.T) {
	invalid := []string{
		"$foo()",
		"foo() ",
		"foo ()",
		" foo()",
		"foo(",
		"foo)",
		"()",
		"foo($,$b)",
	}

	for _, raw := range invalid {
		if _, err := ParseSignature(raw); err == nil {
			t.Errorf("ParseSignature(%q) = nil error, want rejection", raw)
		}
	}
}
