package env

import "testing"

func TestString(t *testing.T) {
	t.Setenv("HRTHIS_TEST_VALUE", "  worker-3 ")
	if got := String("HRTHIS_TEST_VALUE", "x"); got != "worker-3" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("HRTHIS_TEST_VALUE", "   ")
	if got := String("HRTHIS_TEST_VALUE", "x"); got != "x" {
		t.Fatalf("blank value should fall back, got %q", got)
	}
	if got := String("HRTHIS_TEST_UNSET_VALUE", "y"); got != "y" {
		t.Fatalf("unset value should fall back, got %q", got)
	}
}

func TestOneOf(t *testing.T) {
	t.Setenv("HRTHIS_TEST_FORMAT", "Console")
	if got := OneOf("HRTHIS_TEST_FORMAT", "json", "json", "console"); got != "console" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("HRTHIS_TEST_FORMAT", "yaml")
	if got := OneOf("HRTHIS_TEST_FORMAT", "json", "json", "console"); got != "json" {
		t.Fatalf("unknown value should fall back, got %q", got)
	}
}
