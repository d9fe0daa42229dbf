package i18n

import "testing"

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	t.Setenv(LangEnv, "")
	t.Setenv("LANGUAGE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "")
}

func TestDetectLanguagePriorityAndNormalization(t *testing.T) {
	t.Run("DSTRANS_LANG overrides locale variables", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv(LangEnv, "da_DK.UTF-8")
		t.Setenv("LANGUAGE", "ru_RU.UTF-8:en_US")

		if got := detectLanguage(); got != "da_DK" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "da_DK")
		}
	})

	t.Run("LANGUAGE before LC_ALL", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "ru_RU.UTF-8:en_US")
		t.Setenv("LC_ALL", "de_DE.UTF-8")

		if got := detectLanguage(); got != "ru_RU" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "ru_RU")
		}
	})

	t.Run("C and POSIX are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C")
		t.Setenv("LC_ALL", "POSIX")
		t.Setenv("LC_MESSAGES", "fr_FR.UTF-8")

		if got := detectLanguage(); got != "fr_FR" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "fr_FR")
		}
	})

	t.Run("C entries in a preference list are skipped", func(t *testing.T) {
		clearLocaleEnv(t)
		t.Setenv("LANGUAGE", "C:da_DK.UTF-8")
		t.Setenv("LANG", "de_DE.UTF-8")

		if got := detectLanguage(); got != "da_DK" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "da_DK")
		}
	})

	t.Run("falls back to en", func(t *testing.T) {
		clearLocaleEnv(t)
		if got := detectLanguage(); got != "en" {
			t.Fatalf("detectLanguage() = %q, want %q", got, "en")
		}
	})
}

func TestLocaleLanguage(t *testing.T) {
	tests := map[string]string{
		"da_DK.UTF-8":       "da_DK",
		"sr_RS.UTF-8@latin": "sr_RS",
		"de@euro":           "de",
		"pt_BR":             "pt_BR",
		"C":                 "",
		"POSIX":             "",
		"C.UTF-8":           "",
		"":                  "",
	}
	for in, want := range tests {
		if got := localeLanguage(in); got != want {
			t.Errorf("localeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTAndNFallbackWhenUninitialized(t *testing.T) {
	old := po
	po = nil
	t.Cleanup(func() { po = old })

	if got := T("Rows:"); got != "Rows:" {
		t.Fatalf("T fallback = %q, want %q", got, "Rows:")
	}

	if got := N("%d row", "%d rows", 1); got != "%d row" {
		t.Fatalf("N singular fallback = %q, want %q", got, "%d row")
	}

	if got := N("%d row", "%d rows", 2); got != "%d rows" {
		t.Fatalf("N plural fallback = %q, want %q", got, "%d rows")
	}
}

func TestEmbeddedDanishCatalog(t *testing.T) {
	old := po
	t.Cleanup(func() { po = old })

	Init("da")

	if got := T("Rows:"); got != "Rækker:" {
		t.Fatalf("T(Rows:) = %q, want %q", got, "Rækker:")
	}
	if got := N("%d row, columns: %s", "%d rows, columns: %s", 3); got != "%d rækker, kolonner: %s" {
		t.Fatalf("N plural = %q", got)
	}
	if got := T("untranslated message"); got != "untranslated message" {
		t.Fatalf("missing msgid should pass through, got %q", got)
	}
}

func TestUnknownLanguagePassesThrough(t *testing.T) {
	old := po
	t.Cleanup(func() { po = old })

	Init("xx")
	if got := T("Rows:"); got != "Rows:" {
		t.Fatalf("T(Rows:) = %q, want passthrough", got)
	}
}
