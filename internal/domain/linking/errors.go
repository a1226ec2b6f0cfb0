package linking

import "errors"

// Error taxonomy for the linking flow. Every failure is converted into a
// user-visible notification plus a state-machine action; none of these
// escape the orchestrator.
var (
	// ErrConfiguration means a required provider key is missing from the
	// environment. Blocks the connect step entirely; not retryable at runtime.
	ErrConfiguration = errors.New("provider configuration is missing")

	// ErrSDKLoad means the provider script failed to load. Retryable by
	// re-entering the step.
	ErrSDKLoad = errors.New("provider SDK failed to load")

	// ErrPopupBlocked means the OAuth popup could not be opened. No polling
	// is started.
	ErrPopupBlocked = errors.New("authorization popup was blocked")

	// ErrInvalidHandshake means the provider reported success but the payload
	// is missing required fields.
	ErrInvalidHandshake = errors.New("handshake payload is missing required fields")

	// ErrEmptyPreview means the preview fetch returned zero linkable entities.
	ErrEmptyPreview = errors.New("no linkable accounts or data available")

	// ErrEmptySelection blocks commit locally; no backend call is made.
	ErrEmptySelection = errors.New("nothing selected to link")

	// ErrHandshakeRequired guards the preview fetch ordering invariant.
	ErrHandshakeRequired = errors.New("handshake has not completed")

	// ErrBusy rejects a second in-flight operation on the same session.
	ErrBusy = errors.New("another linking operation is in progress")
)
