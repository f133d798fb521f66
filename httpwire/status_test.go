package httpwire

import "testing"

func TestReasonPhrase(t *testing.T) {
	cases := map[int]string{
		200: "OK",
		404: "Not Found",
		431: "Request Header Fields Too Large",
		999: "???",
	}
	for code, want := range cases {
		if got := ReasonPhrase(code); got != want {
			t.Errorf("ReasonPhrase(%d) = %q, want %q", code, got, want)
		}
	}
}
