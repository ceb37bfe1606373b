package calls

import "strings"

// Webhooks builds the public callback URLs handed to the provider.
type Webhooks struct {
	BaseURL string
}

func (w Webhooks) bot(botID, leaf string) string {
	return strings.TrimRight(w.BaseURL, "/") + "/webhooks/voice/" + botID + "/" + leaf
}

func (w Webhooks) Answer(botID string) string     { return w.bot(botID, "answer") }
func (w Webhooks) Transcript(botID string) string { return w.bot(botID, "transcript") }
func (w Webhooks) CallEnded(botID string) string  { return w.bot(botID, "call-ended") }

func (w Webhooks) Inbound() string {
	return strings.TrimRight(w.BaseURL, "/") + "/webhooks/voice/inbound"
}

func (w Webhooks) InboundHangup() string { return w.Inbound() + "/hangup" }
