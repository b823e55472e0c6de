package session

import (
	"context"
	"sync/atomic"

	"github.com/pavelanni/careerprep/internal/apperr"
)

// DeclaredMedia is the server-side MediaSource. The server cannot see the
// browser's devices, so it trusts the permissions the client reports.
type DeclaredMedia struct {
	Camera     bool `json:"camera"`
	Microphone bool `json:"microphone"`
}

func (d DeclaredMedia) Acquire(_ context.Context) (Capture, error) {
	if !d.Camera || !d.Microphone {
		return nil, apperr.New(apperr.KindMediaAccess, "camera and microphone access required (camera=%t, microphone=%t)", d.Camera, d.Microphone)
	}
	return &declaredCapture{}, nil
}

type declaredCapture struct {
	released atomic.Bool
}

func (c *declaredCapture) Release() { c.released.Store(true) }
