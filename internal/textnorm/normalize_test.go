package textnorm

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                                 "",
		"   ":                              "",
		"Stichting  X":                     "stichting x",
		"<b>KC De Peel</b>&nbsp;(Noord)":   "kc de peel noord",
		"Jachtvereniging &amp; Co.":        "jachtvereniging co",
		"Stöberhunde":                      "stöberhunde",
		"Sto\u0308berhunde":                "stöberhunde",
		"  Landgoed   'de Hoge   Veluwe' ": "landgoed de hoge veluwe",
		"!!!":                              "",
		"K.C. Limburg":                     "kc limburg",
		"St.-Hubertus":                     "sthubertus",
	}
	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Fatalf("unexpected normalized value for %q: got %q want %q", input, got, want)
		}
	}
}

func TestKeyStripsStopWords(t *testing.T) {
	t.Parallel()

	if got := Key("Stichting X"); got != "x" {
		t.Fatalf("unexpected key: %q", got)
	}
	if got := Key("Jachtvereniging De Kempen"); got != "de kempen" {
		t.Fatalf("unexpected key: %q", got)
	}
	if got := Key("Stichting"); got != "" {
		t.Fatalf("expected empty key, got %q", got)
	}
	if got := Key("K.C. Limburg"); got != "limburg" {
		t.Fatalf("expected dotted abbreviation to be stripped, got %q", got)
	}
	if Key("K.C. Limburg") != Key("KC Limburg") {
		t.Fatalf("expected punctuation not to split abbreviations: %q vs %q", Key("K.C. Limburg"), Key("KC Limburg"))
	}
	if got := Key("St.-Hubertus"); got != "sthubertus" {
		t.Fatalf("unexpected key: %q", got)
	}
}

func TestCleanDisplay(t *testing.T) {
	t.Parallel()

	got := CleanDisplay("Ede [email protected] Aanvang: 8.30")
	if got != "Ede" {
		t.Fatalf("unexpected cleaned display value: %q", got)
	}
}

func TestStripCollaboration(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Stichting X i.s.m. Jachtvereniging Y":   "Stichting X",
		"KC Twente in samenwerking met De Hazen": "KC Twente",
		"Vereniging Z info@example.nl":           "Vereniging Z",
		"Plain Organizer":                        "Plain Organizer",
	}
	for input, want := range cases {
		if got := StripCollaboration(input); got != want {
			t.Fatalf("unexpected stripped organizer for %q: got %q want %q", input, got, want)
		}
	}
}
