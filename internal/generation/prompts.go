package generation

import (
	"fmt"
	"strings"

	"talknote-go/internal/types"
)

// NoActionItems is returned by ExtractActions when the transcript holds
// nothing actionable.
const NoActionItems = "No action items found."

const (
	restyleInstruction = `You are a note-taking assistant that rewrites voice note transcripts.`
	restyleRules       = `
Rules:
- Rewrite the transcript in the requested style. Keep every fact, name, number and date.
- Do not invent content that is not in the transcript.
- Fix filler words, false starts and transcription errors where the meaning is obvious.
- Return only the rewritten note, without any preamble.`

	summarizeInstruction = `You are a note-taking assistant that writes short summaries of voice notes.`
	summarizeRules       = `
Rules:
- Write a single paragraph of 50 to 100 words.
- Cover the main topic, the decisions taken and anything left open.
- Return only the summary.`

	actionsInstruction = `You are a note-taking assistant that extracts action items from voice notes.`
	actionsRules       = `
Rules:
- List every concrete task, follow-up or commitment as a bullet starting with "- ".
- Include the owner and the due date when the transcript names them.
- If there is nothing actionable, answer exactly: ` + NoActionItems
)

func restylePrompt(transcript string, style types.StyleDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Style: %s\n", style.Name)
	if d := strings.TrimSpace(style.Description); d != "" {
		fmt.Fprintf(&b, "Style description: %s\n", d)
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}

func summarizePrompt(transcript string) string {
	return "Summarize this voice note transcript:\n\n" + transcript
}

func actionsPrompt(transcript string) string {
	return "Extract the action items from this voice note transcript:\n\n" + transcript
}
