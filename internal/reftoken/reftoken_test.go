package reftoken

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Reference{
		{ID: "m1abc2defgh", URL: "https://example.com"},
		{ID: "x", URL: "https://sub.example.co.uk/page?q=1"},
		{ID: "m1abc2defgh", URL: "https://example.com/path/with/segments"},
		{ID: "", URL: ""},
	}
	for _, ref := range cases {
		token, err := Encode(ref)
		if err != nil {
			t.Fatalf("encode %+v: %v", ref, err)
		}
		if strings.Contains(token, "=") {
			t.Fatalf("токен содержит '=': %q", token)
		}
		decoded, err := Decode(token)
		if err != nil {
			t.Fatalf("decode %q: %v", token, err)
		}
		if decoded != ref {
			t.Fatalf("ожидали %+v, получили %+v", ref, decoded)
		}
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, token := range []string{"%%%", "не-base64", "QUJD"} {
		if _, err := Decode(token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("ожидали ErrTokenInvalid для %q, получили %v", token, err)
		}
	}
}

func TestCheckoutURL(t *testing.T) {
	got, err := CheckoutURL("https://buy.stripe.com/eVqeVd2R75Pj4t0eWNeUU02", Reference{ID: "abc", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.Contains(got, "client_reference_id=") {
		t.Fatalf("нет параметра client_reference_id: %q", got)
	}
}
