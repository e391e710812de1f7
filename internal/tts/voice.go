package tts

import (
	"fmt"
	"strconv"
	"strings"
)

// Voice selects a synthesis persona.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"
)

// DefaultVoice is used whenever a selection is missing or invalid.
const DefaultVoice = VoiceAlloy

// VoiceInfo pairs a voice with its menu description.
type VoiceInfo struct {
	Voice       Voice
	Description string
}

// Voices lists the available voices in menu order; choice n selects Voices[n-1].
var Voices = []VoiceInfo{
	{VoiceAlloy, "Neutral and balanced"},
	{VoiceEcho, "Mature and deep"},
	{VoiceFable, "Warm and friendly"},
	{VoiceOnyx, "Professional and authoritative"},
	{VoiceNova, "Bright and energetic"},
	{VoiceShimmer, "Clear and youthful"},
}

func (v Voice) String() string { return string(v) }

// Valid reports whether v is one of the known voices.
func (v Voice) Valid() bool {
	for _, info := range Voices {
		if info.Voice == v {
			return true
		}
	}
	return false
}

// ParseVoiceChoice maps a menu answer "1".."6" to a voice. Anything else,
// including an empty answer, selects DefaultVoice.
func ParseVoiceChoice(input string) Voice {
	choice := strings.TrimSpace(input)
	for i, info := range Voices {
		if choice == strconv.Itoa(i+1) {
			return info.Voice
		}
	}
	return DefaultVoice
}

// ParseVoice resolves a voice by name, case-insensitively.
func ParseVoice(name string) (Voice, error) {
	v := Voice(strings.ToLower(strings.TrimSpace(name)))
	if !v.Valid() {
		return DefaultVoice, fmt.Errorf("unknown voice %q", name)
	}
	return v, nil
}

// Menu renders the numbered voice list shown before the voice prompt.
func Menu() string {
	var b strings.Builder
	for i, info := range Voices {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, info.Voice, info.Description)
	}
	return b.String()
}
