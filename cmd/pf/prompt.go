package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Hussein-Mazeh/PassForge/krypto"
)

// maxPassphraseLen bounds a passphrase read from a pipe.
const maxPassphraseLen = 4096

// promptPassphrase reads a passphrase without echo from a terminal, or one
// line from stdin when it is not a terminal.
func promptPassphrase(cmd *cobra.Command, prompt string) ([]byte, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		return checkPassphrase(pw)
	}

	pw, err := readLine(in)
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	return checkPassphrase(pw)
}

// promptNewPassphrase asks twice on a terminal. Piped input is read once.
func promptNewPassphrase(cmd *cobra.Command) ([]byte, error) {
	pw, err := promptPassphrase(cmd, "Master passphrase: ")
	if err != nil {
		return nil, err
	}
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return pw, nil
	}

	confirm, err := promptPassphrase(cmd, "Confirm passphrase: ")
	if err != nil {
		krypto.Wipe(pw)
		return nil, err
	}
	defer krypto.Wipe(confirm)
	if !bytes.Equal(pw, confirm) {
		krypto.Wipe(pw)
		return nil, userError{msg: "passphrases do not match"}
	}
	return pw, nil
}

func checkPassphrase(pw []byte) ([]byte, error) {
	if len(pw) == 0 {
		return nil, userError{msg: "passphrase cannot be empty"}
	}
	return pw, nil
}

// readLine reads up to a newline one byte at a time so that later reads from
// the same reader see the following line.
func readLine(r io.Reader) ([]byte, error) {
	var line []byte
	b := make([]byte, 1)
	for len(line) <= maxPassphraseLen {
		n, err := r.Read(b)
		if n == 1 {
			if b[0] == '\n' {
				return bytes.TrimSuffix(line, []byte{'\r'}), nil
			}
			line = append(line, b[0])
		}
		if errors.Is(err, io.EOF) {
			return line, nil
		}
		if err != nil {
			krypto.Wipe(line)
			return nil, err
		}
	}
	krypto.Wipe(line)
	return nil, userError{msg: "passphrase too long"}
}

// deliver prints pw or, with copy set, places it on the clipboard instead.
func deliver(cmd *cobra.Command, pw string, copyIt bool) error {
	if !copyIt {
		fmt.Fprintln(cmd.OutOrStdout(), pw)
		return nil
	}
	if err := clipboard.WriteAll(pw); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	notef(cmd, "password copied to clipboard")
	return nil
}
