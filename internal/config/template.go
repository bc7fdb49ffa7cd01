package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrConfigExists is returned by WriteTemplate when the target file exists.
var ErrConfigExists = errors.New("config file already exists")

// Template renders a commented config.yaml. suggestion is a freshly generated
// passphrase shown to the user as a comment; it is never read back.
func Template(dir, suggestion string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `# pf configuration. Every key can also be set through the environment,
# e.g. PASSFORGE_STORE_BACKEND=file, or overridden by command-line flags.

store:
  # sqlite | file | http | s3
  backend: sqlite
  sqlite:
    path: %q
  file:
    dir: %q
  http:
    # entries endpoint of a running "pf serve", e.g. http://127.0.0.1:8787/api/entries
    url: ""
    # key the remote store accepts on DELETE: id | name
    delete_by: id
    timeout: 10s
  s3:
    endpoint: "127.0.0.1:9000"
    access_key_id: "<your object store user id>"
    secret_access_key: "<your object store password>"
    bucket: "<name of a bucket you have already created>"
    use_ssl: false
    prefix: ""

# Argon2id cost for newly generated passwords. Saved entries record the cost
# they were generated with, so changing these never breaks existing entries.
# Passwords generated without saving are only reproducible under the same cost.
engine:
  time_cost: 3
  memory_kib: 65536
  parallelism: 1
  output_len: 64
  init_timeout: 10s
  workers: 1

vault:
  # PBKDF2-HMAC-SHA256 iterations protecting saved entries (minimum 1000).
  # Entries are opened with this value, so change it only on an empty vault.
  pbkdf2_iterations: 210000
  max_suffix: 100

log:
  # debug | info | warn | error
  level: info
  # text | json
  format: text
`, filepath.Join(dir, "vault.db"), dir)

	if suggestion != "" {
		fmt.Fprintf(&b, `
# Need a master passphrase? This one was generated for you with Diceware and
# is not stored anywhere else. Memorize it, then delete this comment.
#
#   %s
`, suggestion)
	}
	return b.String()
}

// WriteTemplate writes Template to path with 0600 permissions, creating the
// parent directory. It never overwrites an existing file.
func WriteTemplate(path, suggestion string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return fmt.Errorf("create config file: %w", err)
	}
	if _, err := f.WriteString(Template(dir, suggestion)); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write config file: %w", err)
	}
	return f.Close()
}
