package linking

import (
	"context"
	"fmt"
)

// ScriptRuntime abstracts the execution environment that hosts provider SDK
// scripts. Production implementations bridge to the embedding front-end;
// tests use fakes.
type ScriptRuntime interface {
	// HasGlobal reports whether the SDK's global entry point already exists.
	HasGlobal(name string) bool
	// InjectScript loads the script at url and returns once its load event
	// fires, or with an error on load failure. No timeout is applied here;
	// only the OAuth handshake has one.
	InjectScript(ctx context.Context, url string) error
}

// ProviderScript describes the SDK script a provider needs before its
// connect step can act.
type ProviderScript struct {
	GlobalName string
	URL        string
	// RequiresKey marks providers whose SDK must be initialized with a
	// publishable key from configuration.
	RequiresKey    bool
	PublishableKey string
}

// SDKLoader ensures the active provider's SDK script is present exactly
// once and records a single ready/error outcome on the session.
type SDKLoader struct {
	runtime ScriptRuntime
}

// NewSDKLoader creates a loader over the given runtime
func NewSDKLoader(runtime ScriptRuntime) *SDKLoader {
	return &SDKLoader{runtime: runtime}
}

// EnsureLoaded makes one load attempt for the session's provider script.
// Repeated calls while already ready are no-ops; a previous error is cleared
// so re-entering the step retries the load.
func (l *SDKLoader) EnsureLoaded(ctx context.Context, s *Session, script ProviderScript) error {
	if s.SDKReady {
		return nil
	}
	s.SDKError = ""

	if script.RequiresKey && script.PublishableKey == "" {
		err := fmt.Errorf("%w: publishable key for provider %q", ErrConfiguration, s.Provider)
		s.SDKError = err.Error()
		return err
	}

	if l.runtime.HasGlobal(script.GlobalName) {
		s.SDKReady = true
		return nil
	}

	if err := l.runtime.InjectScript(ctx, script.URL); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrSDKLoad, err)
		s.SDKError = wrapped.Error()
		return wrapped
	}

	s.SDKReady = true
	return nil
}
