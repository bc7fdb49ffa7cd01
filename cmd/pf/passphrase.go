package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Hussein-Mazeh/PassForge/auth"
	"github.com/Hussein-Mazeh/PassForge/krypto"
)

func newSuggestCmd() *cobra.Command {
	var words int
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Print a random Diceware master passphrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := auth.SuggestPassphrase(words)
			if err != nil {
				return userError{msg: err.Error()}
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().IntVarP(&words, "words", "w", auth.DefaultSuggestWords, "number of words")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var hibp bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Assess the strength of a master passphrase",
		Long: `Check scores the passphrase with zxcvbn and, with --hibp, looks it up in the
Have I Been Pwned range API. Only the first five hex digits of its SHA-1 hash
leave the machine. The result is advice: pf never refuses a passphrase.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := promptPassphrase(cmd, "Passphrase to check: ")
			if err != nil {
				return err
			}
			defer krypto.Wipe(pw)

			opts := auth.DefaultCheckOptions()
			if hibp {
				opts.HIBP = auth.NewHIBPClient()
			}
			adv, err := auth.CheckPassphrase(cmd.Context(), string(pw), opts)
			if err != nil {
				warnf(cmd, "%v", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "score:      %d/4\n", adv.Score)
			fmt.Fprintf(out, "entropy:    %.1f bits\n", adv.Entropy)
			fmt.Fprintf(out, "crack time: %s\n", adv.CrackTime)
			if len(adv.Warnings) > 0 {
				fmt.Fprintf(out, "notes:      %s\n", strings.Join(adv.Warnings, "; "))
			}
			if adv.Weak() {
				warnf(cmd, "this passphrase is weak; try 'pf suggest'")
			} else {
				notef(cmd, "looks good")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&hibp, "hibp", false, "also query the Have I Been Pwned range API")
	return cmd
}
