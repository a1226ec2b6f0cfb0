package linking

import (
	"context"
	"fmt"

	"ledgerlink/internal/infrastructure/ledgerapi"
)

// previewLimit caps the per-category item listing on service previews
const previewLimit = 5

// PreviewManager fetches the normalized listing of linkable entities once a
// handshake result exists. One fetch at a time; a retry re-invokes the
// fetch, it never overlaps one.
type PreviewManager struct {
	api ledgerapi.ClientInterface
}

// NewPreviewManager creates a preview manager over the backend client
func NewPreviewManager(api ledgerapi.ClientInterface) *PreviewManager {
	return &PreviewManager{api: api}
}

// FetchBank exchanges the enrollment bundle for the bank account listing.
// An empty listing is an error, not a valid empty selection state.
func (m *PreviewManager) FetchBank(ctx context.Context, bundle *HandshakeResult) (*Preview, error) {
	if bundle == nil || bundle.Enrollment == nil {
		return nil, ErrHandshakeRequired
	}

	resp, err := m.api.GetBankPreview(ctx, *bundle.Enrollment)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bank preview: %w", err)
	}
	if len(resp.Accounts) == 0 {
		return nil, ErrEmptyPreview
	}

	return &Preview{
		InstitutionName: resp.InstitutionName,
		TotalAccounts:   resp.TotalAccounts,
		Accounts:        resp.Accounts,
	}, nil
}

// FetchService queries the per-category preview for a connected service.
// The backend session established by the OAuth handshake carries the
// credentials; the bundle only gates ordering.
func (m *PreviewManager) FetchService(ctx context.Context, provider string, bundle *HandshakeResult) (*Preview, error) {
	if bundle == nil {
		return nil, ErrHandshakeRequired
	}

	resp, err := m.api.GetServicePreview(ctx, provider, previewLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch service preview: %w", err)
	}

	categories := make(map[Category]ledgerapi.CategoryPreview, len(resp))
	for _, c := range Categories() {
		if cat, ok := resp[string(c)]; ok {
			categories[c] = cat
		}
	}

	preview := &Preview{Categories: categories}
	if preview.Empty() {
		return nil, ErrEmptyPreview
	}
	return preview, nil
}
