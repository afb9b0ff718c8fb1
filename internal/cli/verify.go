package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/iafetch/pkg/checksum"
	"github.com/glorpus-work/iafetch/pkg/errors"
)

// Number of arguments expected by the verify command.
const verifyCommandArgs = 2

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	var hashType string

	cmd := &cobra.Command{
		Use:   "verify FILE HASH",
		Short: "Check a file against a digest",
		Long:  "Compute the digest of a local file and compare it with the expected value",
		Args:  cobra.ExactArgs(verifyCommandArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := checksum.Validate(args[0], args[1], hashType)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", errors.ErrChecksumMismatch, args[0])
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", paint(ansiGreen, "ok"), args[0], hashType)
			return nil
		},
	}

	cmd.Flags().StringVar(&hashType, "type", string(checksum.SHA256), "Hash algorithm (md5, sha1, sha256)")

	return cmd
}
