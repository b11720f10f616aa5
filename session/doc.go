// Package session houses concrete implementations of core.SessionStore.
//
// A session is the conversation transcript of one chat thread. The in-memory
// store keeps transcripts for the lifetime of the process only; nothing is
// persisted across restarts.
package session
