package urlnorm

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeBareDomains(t *testing.T) {
	cases := map[string]string{
		"example.com":          "https://example.com",
		"sub.example.co.uk":    "https://sub.example.co.uk",
		"my-site.io":           "https://my-site.io",
		"  example.com  ":      "https://example.com",
		"https://example.com":  "https://example.com",
		"http://example.com":   "https://example.com",
		"https://example.com/page?q=1": "https://example.com/page?q=1",
	}
	for input, expected := range cases {
		got, err := Normalize(input)
		if err != nil {
			t.Fatalf("не ожидали ошибку для %q: %v", input, err)
		}
		if got != expected {
			t.Fatalf("для %q ожидали %q, получили %q", input, expected, got)
		}
	}
}

func TestNormalizeAlwaysHTTPS(t *testing.T) {
	for _, input := range []string{"example.com", "http://example.com", "https://example.com"} {
		got, err := Normalize(input)
		if err != nil {
			t.Fatalf("не ожидали ошибку для %q: %v", input, err)
		}
		if !strings.HasPrefix(got, "https://") {
			t.Fatalf("ожидали схему https для %q, получили %q", input, got)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"localhost",
		"no spaces allowed.com и текст",
		"ftp://example.com",
		"http://abc",
		"http://a.b",
		"just-words",
		"-bad.com",
	}
	for _, input := range cases {
		if _, err := Normalize(input); err == nil {
			t.Fatalf("ожидали ошибку для %q", input)
		}
	}
}

func TestNormalizeEmptyError(t *testing.T) {
	if _, err := Normalize("  "); !errors.Is(err, ErrURLEmpty) {
		t.Fatalf("ожидали ErrURLEmpty, получили %v", err)
	}
	if _, err := Normalize("abc"); !errors.Is(err, ErrURLInvalid) {
		t.Fatalf("ожидали ErrURLInvalid, получили %v", err)
	}
}
