package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/deferview/internal/config"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: "Print the configuration after flag overrides. With --save the scheduler\n" +
			"settings are written back to .deferview/config.yaml.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if save {
				if err := cfg.SaveScheduler(cfg.Settings()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", cfg.ProjectConfigPath())
			}
			data, err := yaml.Marshal(cfg.Project)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Persist scheduler settings to the config file")

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create .deferview/ with a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := opts.projectDir()
			if err != nil {
				return err
			}
			if err := config.InitProjectDir(dir); err != nil {
				return err
			}
			cfg, err := config.NewConfig(dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.ProjectConfigPath())
			return nil
		},
	})
	return cmd
}
