package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dase/internal/config"
	"dase/internal/watcher"
)

// NewConfigCmd returns dase config command
func NewConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show and manage dase configuration",
	}
	configCmd.AddCommand(newConfigShowCmd(), newConfigInitCmd(), newConfigTypesCmd(), newConfigWatchCmd())
	return configCmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if a.settingsPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", a.settingsPath)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "# defaults")
			}
			data, err := yaml.Marshal(a.settings)
			if err != nil {
				return errors.Wrap(err, "marshal settings")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a settings file with the default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Errorf("%s already exists, use --force to overwrite", path)
			}
			if err := config.DefaultSettings().Save(path); err != nil {
				return err
			}
			logrus.Infof("wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return initCmd
}

func newConfigTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types [DIR]",
		Short: "Print the ORM type table that applies to DIR",
		Long:  "Walks up from DIR looking for .DASE/ORM.Types.json. When none is found the built-in table is written next to DIR.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			m := config.NewManager(config.OSFileSystem{})
			entry, err := m.GetConfiguration(cmd.Context(), config.TargetORM, config.GroupTypes, abs)
			if err != nil {
				return err
			}
			types, ok := entry.Value.(*config.TypesConfiguration)
			if !ok {
				return errors.Errorf("%s does not hold a type table", entry.Path)
			}

			out := cmd.OutOrStdout()
			if entry.Path != "" {
				fmt.Fprintf(out, "# %s\n", entry.Path)
			}
			for _, t := range types.Types {
				fmt.Fprintf(out, "%-10s %-9s pk=%t autoinc=%t length=%t scale=%t\n",
					t.Name, t.Category, t.CanBePrimaryKey, t.CanAutoIncrement, t.HasLength, t.HasScale)
			}
			return nil
		},
	}
}

func newConfigWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Reload the ORM type table of DIR whenever it changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			m := config.NewManager(config.OSFileSystem{})
			types, err := m.ORMTypes(cmd.Context(), abs)
			if err != nil {
				return err
			}
			logrus.Infof("%d types", len(types.Types))

			invalidate := watcher.Invalidator(m)
			w := watcher.New(func(path string) {
				invalidate(path)
				types, err := m.ORMTypes(context.Background(), abs)
				if err != nil {
					logrus.Errorf("reload %s: %v", path, err)
					return
				}
				logrus.Infof("reloaded %s: %d types", path, len(types.Types))
			}, m.Files()...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
