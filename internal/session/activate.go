package session

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Strategy names the editor-side mechanism used to attach a language client
// to the staging file.
type Strategy string

const (
	StrategyEglot   Strategy = "eglot"
	StrategyLSPMode Strategy = "lsp-mode"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyEglot:
		return StrategyEglot, nil
	case StrategyLSPMode:
		return StrategyLSPMode, nil
	}
	return "", fmt.Errorf("session: unknown activation strategy %q", s)
}

// MethodAttachClient is the notification asking the editor to attach a
// language client to a session's staging file.
const MethodAttachClient = "weft/attachClient"

// AttachParams is the payload of MethodAttachClient.
type AttachParams struct {
	SessionID string   `json:"sessionId"`
	URI       string   `json:"uri"`
	Path      string   `json:"path"`
	Language  string   `json:"language"`
	Strategy  Strategy `json:"strategy"`
}

// Notifier delivers a server-to-editor notification.
type Notifier func(method string, params any)

// activate asks the editor to attach a language client to the session's
// staging file. It fires at most once per session.
func (r *Registry) activate(s *Session) {
	if s.activated || r.notify == nil {
		return
	}
	r.notify(MethodAttachClient, AttachParams{
		SessionID: s.id,
		URI:       uriFromPath(s.stagingPath),
		Path:      s.stagingPath,
		Language:  s.block.Language,
		Strategy:  r.strategy,
	})
	s.activated = true
}

func uriFromPath(path string) string {
	return "file://" + filepath.ToSlash(path)
}
