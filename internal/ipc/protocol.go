// Package ipc carries control requests to a running recognizer over a
// per-user unix socket, one JSON line each way.
package ipc

import "github.com/google/uuid"

// Control commands understood by the recognizer.
const (
	CommandStatus = "status"
	CommandWake   = "wake"
	CommandRest   = "rest"
)

type Request struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

type Response struct {
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Mode    string `json:"mode,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewRequest stamps command with a fresh correlation id.
func NewRequest(command string) Request {
	return Request{ID: uuid.NewString(), Command: command}
}
