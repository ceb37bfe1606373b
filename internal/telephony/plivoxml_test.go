package telephony

import (
	"strings"
	"testing"
)

func TestRenderPlivoXMLConversationTurn(t *testing.T) {
	out, err := RenderPlivoXML(Script{
		Say:      "Hello! I am Ava from Acme company. How can I help you today?",
		Voice:    "WOMAN",
		Language: "en-IN",
		Record: &RecordStep{
			ActionURL:        "https://voice.example.com/voice/b1/answer",
			TranscriptionURL: "https://voice.example.com/voice/b1/transcript",
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{
		`<Response>`,
		`<Speak voice="WOMAN" language="en-IN">Hello! I am Ava from Acme company.`,
		`maxLength="30"`,
		`playBeep="true"`,
		`transcriptionType="auto"`,
		`transcriptionUrl="https://voice.example.com/voice/b1/transcript"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in xml: %s", want, out)
		}
	}
	if strings.Contains(out, "<Hangup") {
		t.Fatalf("unexpected hangup: %s", out)
	}
}

func TestRenderPlivoXMLEscapesText(t *testing.T) {
	out, err := RenderPlivoXML(Script{Say: `Tom & "Jerry" <co>`, HangupReason: "rejected"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(out, "<co>") {
		t.Fatalf("text not escaped: %s", out)
	}
	if !strings.Contains(out, `<Hangup reason="rejected">`) {
		t.Fatalf("expected hangup: %s", out)
	}
}

func TestRenderPlivoXMLRejectsInvalidScripts(t *testing.T) {
	cases := map[string]Script{
		"empty":           {},
		"record and hang": {Record: &RecordStep{ActionURL: "x"}, HangupReason: "busy"},
		"record no url":   {Say: "hi", Record: &RecordStep{}},
	}
	for name, s := range cases {
		if _, err := RenderPlivoXML(s); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
