// Command pf regenerates site passwords from a master passphrase and keeps
// the non-secret parameters in an encrypted vault.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Hussein-Mazeh/PassForge/internal/config"
	"github.com/Hussein-Mazeh/PassForge/internal/generator"
	"github.com/Hussein-Mazeh/PassForge/internal/service"
	"github.com/Hussein-Mazeh/PassForge/internal/vault"
	"github.com/Hussein-Mazeh/PassForge/store"
)

const cliVersion = "0.2.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return userError{msg: fmt.Sprintf(format, args...)}
}

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	configPath string
	backend    string
	logLevel   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	code := exitCode(err)
	if code == 1 {
		fmt.Fprintln(stderr, err.Error())
	} else {
		fmt.Fprintf(stderr, "unexpected error: %v\n", err)
	}
	return code
}

// exitCode maps user and validation mistakes to 1 and everything else to 2.
func exitCode(err error) int {
	var uerr userError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &uerr),
		errors.Is(err, generator.ErrEmptyCharset),
		errors.Is(err, generator.ErrInvalidLength),
		errors.Is(err, vault.ErrDecryptionFailure),
		errors.Is(err, vault.ErrNameSpaceExhausted),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrInvalidEntry),
		errors.Is(err, service.ErrNameTaken),
		errors.Is(err, config.ErrConfigExists):
		return 1
	}
	return 2
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "pf",
		Short: "Deterministic passwords from one master passphrase",
		Long: `pf derives site passwords from a master passphrase and public metadata
(service, account, device, version) with Argon2id. Nothing secret is stored:
a saved entry holds only the derivation parameters, encrypted under a key
derived from the passphrase and the entry name.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default $HOME/.passforge/config.yaml)")
	pf.StringVar(&flags.backend, "backend", "", "vault store backend: sqlite, file, http or s3")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError{msg: err.Error()}
	})
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetHelpCommand(&cobra.Command{Hidden: true})

	root.AddCommand(
		newGenerateCmd(flags),
		newSaveCmd(flags),
		newRecallCmd(flags),
		newListCmd(flags),
		newEditCmd(flags),
		newRenameCmd(flags),
		newDeleteCmd(flags),
		newServeCmd(flags),
		newSuggestCmd(),
		newCheckCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pf version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cliVersion)
		},
	}
}

// warnf prints a yellow warning on stderr.
func warnf(cmd *cobra.Command, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", args...)
}

// notef prints a green notice on stderr.
func notef(cmd *cobra.Command, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
