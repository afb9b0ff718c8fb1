package cli

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glorpus-work/iafetch/pkg/errors"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.NewRequestError(errors.ErrNotFound, "https://archive.org/metadata/x", 404, nil, nil), "does not exist on archive.org"},
		{fmt.Errorf("wrapped: %w", errors.ErrCancelled), "Download cancelled."},
		{errors.NewRequestError(errors.ErrRateLimited, "u", 429, nil, nil), "throttling"},
		{errors.ErrChecksumMismatch, "checksum verification"},
		{context.Canceled, "Interrupted."},
		{fmt.Errorf("something else"), "something else"},
	}
	for _, tt := range tests {
		assert.Contains(t, UserMessage(tt.err), tt.want)
	}
	assert.Empty(t, UserMessage(nil))
}
