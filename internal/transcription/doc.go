// Package transcription turns recorded audio into text through a speech
// recognition backend. Short clips go through a single blocking recognize
// call; large or long clips are submitted as long-running jobs and polled
// until they finish, fail, or exceed the configured ceiling.
package transcription
