package callagent

import "strings"

// voicemailIndicators are phrases that reliably signal an answering machine.
// False positives cost a wasted call; false negatives only waste airtime, so
// the list stays conservative.
var voicemailIndicators = []string{
	"leave a message",
	"leave your message",
	"after the beep",
	"after the tone",
	"at the tone",
	"is not available",
	"voice mail",
	"voicemail",
	"mailbox is full",
	"record your message",
	"please leave your name",
	"unable to take your call",
}

// DetectVoicemail reports whether the transcript text looks like a voicemail
// greeting.
func DetectVoicemail(text string) bool {
	lowered := strings.ToLower(text)
	for _, indicator := range voicemailIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}
