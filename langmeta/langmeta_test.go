package langmeta

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "da", want: "da"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		got, ok := Resolve("en-GB")
		if !ok || got.Name != "British English" {
			t.Fatalf("unexpected result: %#v, %v", got, ok)
		}
	})

	t.Run("normalized match", func(t *testing.T) {
		got, ok := Resolve("pt_br")
		if !ok || got.Name != "Brazilian Portuguese" {
			t.Fatalf("unexpected result: %#v, %v", got, ok)
		}
	})

	t.Run("base fallback", func(t *testing.T) {
		got, ok := Resolve("da-DK")
		if !ok || got.Name != "Danish" || got.Native != "Dansk" {
			t.Fatalf("unexpected fallback result: %#v, %v", got, ok)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got, ok := Resolve("zz-ZZ")
		if ok || got.Name != "zz-ZZ" {
			t.Fatalf("unexpected unknown result: %#v, %v", got, ok)
		}
	})
}

func TestName(t *testing.T) {
	cases := map[string]string{
		"da":        "Danish",
		"en":        "English",
		"DE":        "German",
		"Danish":    "Danish",
		" Klingon ": "Klingon",
	}
	for in, want := range cases {
		if got := Name(in); got != want {
			t.Errorf("Name(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLabel(t *testing.T) {
	if got := Label("da"); got != "Danish (Dansk) [da]" {
		t.Errorf("Label(da) = %q", got)
	}
	if got := Label("en"); got != "English [en]" {
		t.Errorf("Label(en) = %q", got)
	}
	if got := Label("Danish"); got != "Danish" {
		t.Errorf("Label(Danish) = %q", got)
	}
}
