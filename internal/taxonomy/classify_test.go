package taxonomy

import "testing"

func TestClassifyFieldTrialQualifiers(t *testing.T) {
	t.Parallel()

	got := Classify("CACIT Najaarswedstrijd", CalendarFieldTrial)
	if got.Code != CodeFieldTrial || got.Detail != "Internationale kwalificatie: CACIT Najaarswedstrijd" {
		t.Fatalf("unexpected international classification: %+v", got)
	}

	got = Classify("CAC Apporteerwedstrijd", CalendarFieldTrial)
	if got.Code != CodeFieldTrial || got.Detail != "Kwalificatie: CAC Apporteerwedstrijd" {
		t.Fatalf("unexpected national classification: %+v", got)
	}

	got = Classify("Voorjaarswedstrijd", CalendarFieldTrial)
	if got.Code != CodeFieldTrial || got.Detail != "" || got.Fallthrough {
		t.Fatalf("unexpected plain field trial classification: %+v", got)
	}
}

func TestClassifyProficiencyRules(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Standaard Jachthonden proef":        CodeSJP,
		"Middelgrote Apporteur Proef":        CodeMAP,
		"MAP":                                CodeMAP,
		"Provinciale Jachthonden Proef":      CodePJP,
		"Praktijk Jachthonden Proef (PJP)":   CodePJP,
		"Team Apporteer Proef":               CodeTAP,
		"KAP voorjaar":                       CodeKAP,
		"Voorjaars-KAP":                      CodeKAP,
		"Stöberhunde Workingtest":            CodeSWT,
		"Spaniël Workingtest":                CodeSWT,
		"ORWEJA Werktest B-klasse":           CodeOWT,
		"Standaard Jachthonden en MAP combi": CodeSJP,
	}
	for label, want := range cases {
		got := Classify(label, CalendarProficiency)
		if got.Code != want || got.Detail != "" || got.Fallthrough {
			t.Fatalf("unexpected classification for %q: %+v want %s", label, got, want)
		}
	}
}

func TestClassifyBareCodeNeedsWholeWord(t *testing.T) {
	t.Parallel()

	got := Classify("Mapping dag", CalendarProficiency)
	if got.Code != "Mapping dag" || !got.Fallthrough {
		t.Fatalf("expected fallthrough for label containing code as substring, got %+v", got)
	}
}

func TestClassifySpecialeJachthondenproefIsVerbatim(t *testing.T) {
	t.Parallel()

	for _, label := range []string{"SJP Speciale Jachthondenproef", "SJP"} {
		got := Classify(label, CalendarProficiency)
		if got.Code != label || !got.Fallthrough {
			t.Fatalf("expected %q to fall through verbatim, got %+v", label, got)
		}
	}
}

func TestClassifyFallthroughKeepsLabel(t *testing.T) {
	t.Parallel()

	got := Classify("Zweetspoor proef", CalendarProficiency)
	if got.Code != "Zweetspoor proef" || !got.Fallthrough {
		t.Fatalf("unexpected fallthrough result: %+v", got)
	}
}

func TestClassifyOtherCalendarVerbatim(t *testing.T) {
	t.Parallel()

	got := Classify(" Werktest A ", CalendarWorkingTest)
	if got.Code != "Werktest A" || got.Fallthrough {
		t.Fatalf("unexpected verbatim classification: %+v", got)
	}
}

func TestClassifierExtraRules(t *testing.T) {
	t.Parallel()

	classifier := NewClassifier(map[string][]Rule{
		CalendarProficiency: {{Code: "ZSP", Phrases: []string{"Zweetspoor"}}},
		CalendarWorkingTest: {{Code: CodeOWT, Words: []string{"werktest"}}},
		CalendarFieldTrial:  {{Code: "IGNORED", Words: []string{"cac"}}},
	})

	if got := classifier.Classify("Zweetspoor proef", CalendarProficiency); got.Code != "ZSP" || got.Fallthrough {
		t.Fatalf("unexpected extra rule result: %+v", got)
	}
	if got := classifier.Classify("Standaard Jachthonden proef", CalendarProficiency); got.Code != CodeSJP {
		t.Fatalf("expected built-in rules to keep precedence, got %+v", got)
	}
	if got := classifier.Classify("Werktest A", CalendarWorkingTest); got.Code != CodeOWT {
		t.Fatalf("unexpected working test result: %+v", got)
	}
	if got := classifier.Classify("Wintertraining", CalendarWorkingTest); got.Code != "Wintertraining" || !got.Fallthrough {
		t.Fatalf("expected fallthrough once a calendar has rules, got %+v", got)
	}
	if got := classifier.Classify("CAC Voorjaar", CalendarFieldTrial); got.Code != CodeFieldTrial {
		t.Fatalf("expected field trial rules to be fixed, got %+v", got)
	}
	if got := Classify("Zweetspoor proef", CalendarProficiency); !got.Fallthrough {
		t.Fatalf("expected default classifier to be unaffected, got %+v", got)
	}
}
