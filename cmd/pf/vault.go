package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Hussein-Mazeh/PassForge/auth"
	"github.com/Hussein-Mazeh/PassForge/internal/generator"
	"github.com/Hussein-Mazeh/PassForge/internal/service"
	"github.com/Hussein-Mazeh/PassForge/internal/site"
	"github.com/Hussein-Mazeh/PassForge/krypto"
	"github.com/Hussein-Mazeh/PassForge/store"
)

// paramFlags are the derivation parameters accepted by generate, save and edit.
type paramFlags struct {
	account   string
	device    string
	version   string
	length    int
	url       string
	noLower   bool
	noUpper   bool
	noDigits  bool
	noSymbols bool
}

func (f *paramFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.account, "account", "a", generator.DefaultAccount, "account or username at the service")
	fs.StringVarP(&f.device, "device", "d", generator.DefaultDevice, "device label")
	fs.StringVarP(&f.version, "version", "V", generator.DefaultVersion, "rotation counter; change it to get a new password")
	fs.IntVarP(&f.length, "length", "n", generator.DefaultLength, fmt.Sprintf("password length (%d-%d)", generator.MinLength, generator.MaxLength))
	fs.StringVar(&f.url, "url", "", "take the service from a page URL (its registrable domain)")
	fs.BoolVar(&f.noLower, "no-lower", false, "exclude lowercase letters")
	fs.BoolVar(&f.noUpper, "no-upper", false, "exclude uppercase letters")
	fs.BoolVar(&f.noDigits, "no-digits", false, "exclude digits")
	fs.BoolVar(&f.noSymbols, "no-symbols", false, "exclude symbols")
}

// apply copies the flags onto p. With onlyChanged set, flags the user did not
// pass leave p untouched.
func (f *paramFlags) apply(p *generator.DerivationParams, fs *pflag.FlagSet, onlyChanged bool) {
	set := func(name string) bool { return !onlyChanged || fs.Changed(name) }
	if set("account") {
		p.Account = f.account
	}
	if set("device") {
		p.Device = f.device
	}
	if set("version") {
		p.Version = f.version
	}
	if set("length") {
		p.Length = f.length
	}
	if set("no-lower") {
		p.UseLower = !f.noLower
	}
	if set("no-upper") {
		p.UseUpper = !f.noUpper
	}
	if set("no-digits") {
		p.UseDigits = !f.noDigits
	}
	if set("no-symbols") {
		p.UseSymbols = !f.noSymbols
	}
}

// resolveService takes the service from the argument or from --url, warning
// about hosts that look like phishing.
func resolveService(cmd *cobra.Command, args []string, rawURL string) (string, error) {
	switch {
	case len(args) == 1 && rawURL != "":
		return "", usageErrorf("pass either SERVICE or --url, not both")
	case len(args) == 1:
		return args[0], nil
	case rawURL == "":
		return "", usageErrorf("missing SERVICE or --url")
	}
	s, err := site.Parse(rawURL)
	if err != nil {
		return "", userError{msg: err.Error()}
	}
	for _, w := range s.Warnings {
		warnf(cmd, "%s: %s", s.Host, site.Describe(w))
	}
	return s.Service, nil
}

// adviseOffline warns about a weak master passphrase without contacting HIBP.
func adviseOffline(cmd *cobra.Command, pw []byte, service string) {
	opts := auth.DefaultCheckOptions()
	opts.UserInputs = []string{service}
	adv, _ := auth.CheckPassphrase(cmd.Context(), string(pw), opts)
	if adv.Weak() {
		warnf(cmd, "master passphrase is weak (score %d/4, cracked in %s); try 'pf suggest'", adv.Score, adv.CrackTime)
	}
}

func newGenerateCmd(flags *rootFlags) *cobra.Command {
	var (
		pf     paramFlags
		copyIt bool
	)
	cmd := &cobra.Command{
		Use:   "generate [SERVICE]",
		Short: "Derive the password for a service without saving anything",
		Example: `  pf generate example.com
  pf generate example.com --account alice --version 01 --length 24 --copy
  pf generate --url https://login.example.com/signin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			svcName, err := resolveService(cmd, args, pf.url)
			if err != nil {
				return err
			}
			params := generator.NewParams(svcName)
			pf.apply(&params, cmd.Flags(), false)
			if err := params.Validate(); err != nil {
				return err
			}

			pw, err := promptPassphrase(cmd, "Master passphrase: ")
			if err != nil {
				return err
			}
			defer krypto.Wipe(pw)
			adviseOffline(cmd, pw, params.Service)

			out, err := a.svc.Generate(cmd.Context(), pw, params)
			if err != nil {
				return err
			}
			return deliver(cmd, out, copyIt)
		},
	}
	pf.register(cmd.Flags())
	cmd.Flags().BoolVar(&copyIt, "copy", false, "copy the password to the clipboard instead of printing it")
	return cmd
}

func newSaveCmd(flags *rootFlags) *cobra.Command {
	var pf paramFlags
	cmd := &cobra.Command{
		Use:   "save [SERVICE]",
		Short: "Save encrypted derivation parameters for a service",
		Long: `Save seals the parameters under a name built from the service and any
non-default account, device and version, adding " (n)" if the name is taken.
The passphrase is never stored; it is needed again to recall the entry.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			svcName, err := resolveService(cmd, args, pf.url)
			if err != nil {
				return err
			}
			params := generator.NewParams(svcName)
			pf.apply(&params, cmd.Flags(), false)
			if err := params.Validate(); err != nil {
				return err
			}

			pw, err := promptNewPassphrase(cmd)
			if err != nil {
				return err
			}
			defer krypto.Wipe(pw)
			adviseOffline(cmd, pw, params.Service)

			name, err := a.svc.Save(cmd.Context(), pw, params)
			if err != nil {
				return err
			}
			notef(cmd, "saved as %q", name)
			return nil
		},
	}
	pf.register(cmd.Flags())
	return cmd
}

func newRecallCmd(flags *rootFlags) *cobra.Command {
	var (
		copyIt, showParams bool
		pageURL            string
	)
	cmd := &cobra.Command{
		Use:   "recall NAME",
		Short: "Regenerate the password of a saved entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			pw, err := promptPassphrase(cmd, "Master passphrase: ")
			if err != nil {
				return err
			}
			defer krypto.Wipe(pw)

			r, err := a.svc.Recall(cmd.Context(), pw, args[0])
			if err != nil {
				return err
			}
			if pageURL != "" && !site.Matches(r.Record.Service, pageURL) {
				return usageErrorf("refusing: %s does not belong to %q", pageURL, r.Record.Service)
			}
			if showParams {
				printParams(cmd, r.Record.Params())
			}
			return deliver(cmd, r.Password, copyIt)
		},
	}
	cmd.Flags().BoolVar(&copyIt, "copy", false, "copy the password to the clipboard instead of printing it")
	cmd.Flags().BoolVar(&showParams, "show-params", false, "print the stored parameters on stderr")
	cmd.Flags().StringVar(&pageURL, "url", "", "only release the password if this page URL belongs to the entry's service")
	return cmd
}

func printParams(cmd *cobra.Command, p generator.DerivationParams) {
	tw := tabwriter.NewWriter(cmd.ErrOrStderr(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "service\t%s\n", p.Service)
	fmt.Fprintf(tw, "account\t%s\n", p.Account)
	fmt.Fprintf(tw, "device\t%s\n", p.Device)
	fmt.Fprintf(tw, "version\t%s\n", p.Version)
	fmt.Fprintf(tw, "length\t%d\n", p.Length)
	fmt.Fprintf(tw, "classes\tlower=%t upper=%t digits=%t symbols=%t\n", p.UseLower, p.UseUpper, p.UseDigits, p.UseSymbols)
	tw.Flush()
}

func newListCmd(flags *rootFlags) *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:   "list [QUERY]",
		Short: "List saved entries, optionally filtered by a name substring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return listEntries(cmd.Context(), cmd, a.svc, query, group)
		},
	}
	cmd.Flags().BoolVarP(&group, "group", "g", false, "group entries by service")
	return cmd
}

func newEditCmd(flags *rootFlags) *cobra.Command {
	var pf paramFlags
	cmd := &cobra.Command{
		Use:   "edit NAME",
		Short: "Change the stored parameters of an entry, keeping its name",
		Example: `  pf edit example.com --version 01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			pw, err := promptPassphrase(cmd, "Master passphrase: ")
			if err != nil {
				return err
			}
			defer krypto.Wipe(pw)

			rec, err := a.svc.Open(cmd.Context(), pw, args[0])
			if err != nil {
				return err
			}
			params := rec.Params()
			pf.apply(&params, cmd.Flags(), true)
			if pf.url != "" {
				svcName, err := resolveService(cmd, nil, pf.url)
				if err != nil {
					return err
				}
				params.Service = svcName
			}

			if err := a.svc.Edit(cmd.Context(), pw, args[0], params); err != nil {
				return err
			}
			notef(cmd, "updated %q", args[0])
			return nil
		},
	}
	pf.register(cmd.Flags())
	return cmd
}

func newRenameCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename an entry, re-encrypting it under the new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			pw, err := promptPassphrase(cmd, "Master passphrase: ")
			if err != nil {
				return err
			}
			defer krypto.Wipe(pw)

			if err := a.svc.Rename(cmd.Context(), pw, args[0], args[1]); err != nil {
				return err
			}
			notef(cmd, "renamed %q to %q", args[0], args[1])
			return nil
		},
	}
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete [NAME]",
		Short: "Delete a saved entry by name or by --id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ref store.Ref
			switch {
			case id != "" && len(args) == 1:
				return usageErrorf("pass either NAME or --id, not both")
			case id != "":
				ref = store.IDRef(id)
			case len(args) == 1:
				ref = store.NameRef(args[0])
			default:
				return usageErrorf("missing entry NAME or --id")
			}

			a, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.Delete(cmd.Context(), ref); err != nil {
				return err
			}
			notef(cmd, "deleted %s", ref)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "delete by store id")
	return cmd
}

// listEntries prints entries as a table, or as service groups with group set.
func listEntries(ctx context.Context, cmd *cobra.Command, svc *service.Service, query string, group bool) error {
	out := cmd.OutOrStdout()
	if group {
		groups, err := svc.Group(ctx, query)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			fmt.Fprintln(out, "no entries")
			return nil
		}
		for _, g := range groups {
			fmt.Fprintln(out, g.Service)
			for _, it := range g.Items {
				fmt.Fprintf(out, "  %s\n", it.Name)
			}
		}
		return nil
	}

	items, err := svc.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "no entries")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCREATED\tID")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Name, it.CreatedAt.Local().Format("2006-01-02 15:04"), it.ID)
	}
	return tw.Flush()
}
