package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dase/internal/service"
)

// NewStoreCmd returns dase store command
func NewStoreCmd() *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Keep documents in the local document store",
		Long:  "Documents are stored by root element id. Wherever a DOCUMENT is expected either the id or the document name may be given.",
	}
	storeCmd.AddCommand(
		newStoreSaveCmd(),
		newStoreLoadCmd(),
		newStoreListCmd(),
		newStoreDeleteCmd(),
		newStoreCheckCmd(),
	)
	return storeCmd
}

func newStoreSaveCmd() *cobra.Command {
	var name, format string
	saveCmd := &cobra.Command{
		Use:     "save FILE",
		Short:   "Import a document file into the store",
		Args:    cobra.ExactArgs(1),
		Example: "  dase store save shop.dase --name shop",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			doc, err := svc.Import(cmd.Context(), formatOf(args[0], format), in, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", doc.ID, doc.Name)
			return nil
		},
	}
	saveCmd.Flags().StringVar(&name, "name", "", "document name (default: the root element name)")
	saveCmd.Flags().StringVar(&format, "format", "", "input format (xml, json, yaml)")
	return saveCmd
}

func newStoreLoadCmd() *cobra.Command {
	var format string
	loadCmd := &cobra.Command{
		Use:     "load DOCUMENT [OUT]",
		Short:   "Export a stored document",
		Args:    cobra.RangeArgs(1, 2),
		Example: "  dase store load shop shop.json\n  dase store load shop --format yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			path := "-"
			if len(args) == 2 {
				path = args[1]
			}
			out, err := createOutput(path)
			if err != nil {
				return err
			}
			if err := svc.Export(cmd.Context(), args[0], formatOf(path, format), out); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}
	loadCmd.Flags().StringVar(&format, "format", "", "output format (xml, json, yaml)")
	return loadCmd
}

func newStoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			docs, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "NAME", "ROOT", "SIZE", "DIGEST", "UPDATED"})
			for _, d := range docs {
				table.Append([]string{
					d.ID.String(),
					d.Name,
					d.RootTag,
					humanize.Bytes(uint64(d.Size)),
					shortDigest(d.Digest),
					humanize.Time(d.UpdatedAt),
				})
			}
			table.Render()
			return nil
		},
	}
}

func newStoreDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete DOCUMENT...",
		Short: "Remove documents from the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			for _, ref := range args {
				_, doc, err := svc.Resolve(cmd.Context(), ref)
				if errors.Is(err, service.ErrDocumentNotFound) {
					logrus.Warnf("%s: not stored", ref)
					continue
				}
				if doc == nil {
					return errors.Wrapf(err, "resolve %s", ref)
				}
				if err := svc.Delete(cmd.Context(), doc.ID); err != nil {
					return err
				}
				logrus.Infof("deleted %s (%s)", doc.Name, doc.ID)
			}
			return nil
		},
	}
}

func newStoreCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check DOCUMENT",
		Short: "Validate a stored document against its property rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			svc, closeFn, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			report, err := svc.Check(cmd.Context(), args[0])
			if err != nil && len(report.Issues) == 0 {
				return err
			}
			if err != nil {
				logrus.Warnf("%s loaded with errors: %v", args[0], err)
			}
			printReport(cmd.OutOrStdout(), report)
			if !report.Valid() {
				return errors.Errorf("%s: %d errors", args[0], report.Errors)
			}
			return nil
		},
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return strings.TrimSpace(d)
}
