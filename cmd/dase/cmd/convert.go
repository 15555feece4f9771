package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type convertFlag struct {
	from string
	to   string
}

var exampleForConvertCmd = `
  dase convert shop.dase shop.json
  dase convert shop.yaml - --to xml
  cat shop.json | dase convert - shop.dase --from json
`

// NewConvertCmd returns dase convert command
func NewConvertCmd() *cobra.Command {
	flags := &convertFlag{}
	convertCmd := &cobra.Command{
		Use:     "convert IN OUT",
		Short:   "Convert a document between XML, JSON and YAML",
		Long:    "Formats are taken from the file extensions (.xml/.dase, .json, .yaml/.yml) unless --from or --to is given. Use - for stdin or stdout.",
		Args:    cobra.ExactArgs(2),
		Example: exampleForConvertCmd,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			root, err := a.readTree(args[0], flags.from)
			if root == nil {
				return err
			}
			if err != nil {
				logrus.Warnf("%s read with errors: %v", args[0], err)
			}
			return a.writeTree(root, args[1], flags.to)
		},
	}
	convertCmd.Flags().StringVar(&flags.from, "from", "", "input format (xml, json, yaml)")
	convertCmd.Flags().StringVar(&flags.to, "to", "", "output format (xml, json, yaml)")
	return convertCmd
}
