package webhdfs

import (
	"fmt"

	api "github.com/webhdfs/webhdfs_sdk_go/internal/webhdfsapi"
)

// DecodeFileStatus converts a GETFILESTATUS response into a FileStatus.
func DecodeFileStatus(obj map[string]any) (*FileStatus, error) {
	var st FileStatus
	if err := api.DecodeInto(obj, api.KeyFileStatus, &st); err != nil {
		return nil, fmt.Errorf("webhdfs: decode file status: %w", err)
	}
	return &st, nil
}

// DecodeListing converts a LISTSTATUS response into its entries.
func DecodeListing(obj map[string]any) ([]FileStatus, error) {
	inner, ok := api.Unwrap(obj, api.KeyFileStatuses)
	if !ok {
		return nil, fmt.Errorf("webhdfs: decode listing: missing %q", api.KeyFileStatuses)
	}
	var entries []FileStatus
	if err := api.DecodeInto(inner, api.KeyFileStatus, &entries); err != nil {
		return nil, fmt.Errorf("webhdfs: decode listing: %w", err)
	}
	return entries, nil
}

// DecodeContentSummary converts a GETCONTENTSUMMARY response.
func DecodeContentSummary(obj map[string]any) (*ContentSummary, error) {
	var cs ContentSummary
	if err := api.DecodeInto(obj, api.KeyContentSummary, &cs); err != nil {
		return nil, fmt.Errorf("webhdfs: decode content summary: %w", err)
	}
	return &cs, nil
}
