package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hussein-Mazeh/PassForge/auth"
	"github.com/Hussein-Mazeh/PassForge/internal/config"
)

func newInitCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented template config file",
		Long: `Init writes $HOME/.passforge/config.yaml (or --path) with every setting at
its default and a freshly generated passphrase suggestion in a comment.
An existing file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}

			suggestion, err := auth.SuggestPassphrase(auth.DefaultSuggestWords)
			if err != nil {
				return err
			}
			if err := config.WriteTemplate(path, suggestion); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "where to write the config file")
	return cmd
}
