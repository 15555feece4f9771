package cmd

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var exampleForValidateCmd = `
  dase validate shop.dase
  dase validate models/*.dase
`

// NewValidateCmd returns dase validate command
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "validate FILE...",
		Short:   "Check that XML documents use only registered elements",
		Args:    cobra.MinimumNArgs(1),
		Example: exampleForValidateCmd,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			var result *multierror.Error
			out := cmd.OutOrStdout()
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					result = multierror.Append(result, errors.Wrapf(err, "read %s", path))
					continue
				}
				res := a.engine.ValidateXml(string(data))
				if res.Valid {
					fmt.Fprintf(out, "%s: ok\n", path)
					continue
				}
				for _, e := range res.Errors {
					fmt.Fprintf(out, "%s: %v\n", path, e)
				}
				result = multierror.Append(result, errors.Errorf("%s: %d errors", path, len(res.Errors)))
			}
			logrus.Debugf("validated %d files", len(args))
			return result.ErrorOrNil()
		},
	}
}
