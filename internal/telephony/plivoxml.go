package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// Plivo XML is a minimal call-flow markup builder.
// Only the verbs the voice bot needs at the adapter boundary are modeled.

type xmlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type xmlSpeak struct {
	XMLName  xml.Name `xml:"Speak"`
	Voice    string   `xml:"voice,attr,omitempty"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type xmlRecord struct {
	XMLName             xml.Name `xml:"Record"`
	Action              string   `xml:"action,attr"`
	Method              string   `xml:"method,attr,omitempty"`
	MaxLength           int      `xml:"maxLength,attr,omitempty"`
	PlayBeep            bool     `xml:"playBeep,attr"`
	TranscriptionType   string   `xml:"transcriptionType,attr,omitempty"`
	TranscriptionURL    string   `xml:"transcriptionUrl,attr,omitempty"`
	TranscriptionMethod string   `xml:"transcriptionMethod,attr,omitempty"`
}

type xmlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

// Script is one provider-agnostic call-flow turn: speak, then record or hang up.
type Script struct {
	Say      string
	Voice    string
	Language string

	// Record, when set, captures the caller's next utterance.
	Record *RecordStep

	// HangupReason, when set, ends the call after Say.
	HangupReason string
}

// RecordStep points the provider at the callbacks for the recorded turn.
type RecordStep struct {
	ActionURL        string
	TranscriptionURL string
	MaxLengthSeconds int
}

// DefaultRecordSeconds bounds each recorded caller turn.
const DefaultRecordSeconds = 30

// RenderPlivoXML renders a Script as Plivo XML.
func RenderPlivoXML(s Script) (string, error) {
	var r xmlResponse

	if text := strings.TrimSpace(s.Say); text != "" {
		r.Verbs = append(r.Verbs, xmlSpeak{Voice: s.Voice, Language: s.Language, Text: text})
	}

	switch {
	case s.Record != nil && s.HangupReason != "":
		return "", errors.New("telephony: script cannot both record and hang up")
	case s.Record != nil:
		if s.Record.ActionURL == "" {
			return "", errors.New("telephony: record action url required")
		}
		max := s.Record.MaxLengthSeconds
		if max <= 0 {
			max = DefaultRecordSeconds
		}
		rec := xmlRecord{
			Action:    s.Record.ActionURL,
			Method:    "POST",
			MaxLength: max,
			PlayBeep:  true,
		}
		if s.Record.TranscriptionURL != "" {
			rec.TranscriptionType = "auto"
			rec.TranscriptionURL = s.Record.TranscriptionURL
			rec.TranscriptionMethod = "POST"
		}
		r.Verbs = append(r.Verbs, rec)
	case s.HangupReason != "":
		r.Verbs = append(r.Verbs, xmlHangup{Reason: s.HangupReason})
	}

	if len(r.Verbs) == 0 {
		return "", errors.New("telephony: empty script")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
