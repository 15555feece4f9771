package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dase/internal/element"
	"dase/internal/service"
)

type checkFlag struct {
	fix    bool
	format string
}

var exampleForCheckCmd = `
  dase check shop.dase
  dase check shop.dase --fix
`

// NewCheckCmd returns dase check command
func NewCheckCmd() *cobra.Command {
	flags := &checkFlag{}
	checkCmd := &cobra.Command{
		Use:     "check FILE",
		Short:   "Validate a model against its property rules",
		Long:    "check evaluates the property rules of every element. With --fix the first fix offered for each issue is applied and the file is written back.",
		Args:    cobra.ExactArgs(1),
		Example: exampleForCheckCmd,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			path := args[0]

			root, err := a.readTree(path, flags.format)
			if root == nil {
				return err
			}
			if err != nil {
				logrus.Warnf("%s read with errors: %v", path, err)
			}

			provider, err := a.provider(cmd.Context(), filepath.Dir(path))
			if err != nil {
				return err
			}
			svc := service.NewDocumentService(a.engine, nil, a.codecs, provider, nil)

			report := svc.Validate(root)
			printReport(cmd.OutOrStdout(), report)

			if flags.fix {
				applied := applyFixes(root, report)
				if applied > 0 {
					if err := a.writeTree(root, path, flags.format); err != nil {
						return err
					}
					logrus.Infof("applied %d fixes to %s", applied, path)
					report = svc.Validate(root)
				}
			}
			if !report.Valid() {
				return errors.Errorf("%s: %d errors, %d warnings", path, report.Errors, report.Warnings)
			}
			return nil
		},
	}
	checkCmd.Flags().BoolVar(&flags.fix, "fix", false, "apply the first offered fix of every issue")
	checkCmd.Flags().StringVar(&flags.format, "format", "", "file format (xml, json, yaml)")
	return checkCmd
}

func printReport(w io.Writer, report service.Report) {
	for _, issue := range report.Issues {
		m := issue.Message
		fmt.Fprintf(w, "%-7s %s %q %s: %s\n", m.Severity, issue.Tag, issue.ElementName, m.PropertyName, m.Text)
		for _, fix := range m.Fixes {
			fmt.Fprintf(w, "        fix: %s\n", fix.Name)
		}
	}
	fmt.Fprintf(w, "%d errors, %d warnings\n", report.Errors, report.Warnings)
}

func applyFixes(root *element.Element, report service.Report) int {
	byID := map[string]*element.Element{root.ID().String(): root}
	for _, e := range root.FindChildren(nil, true) {
		byID[e.ID().String()] = e
	}

	applied := 0
	for _, issue := range report.Issues {
		e := byID[issue.ElementID.String()]
		if e == nil || len(issue.Message.Fixes) == 0 {
			continue
		}
		fix := issue.Message.Fixes[0]
		if fix.Apply(e) {
			logrus.Debugf("%s %q: %s", issue.Tag, issue.ElementName, fix.Name)
			applied++
		}
	}
	return applied
}
