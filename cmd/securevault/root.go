package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/khadijaf/securevault/internal/config"
	"github.com/khadijaf/securevault/internal/storage"
	"github.com/khadijaf/securevault/pkg/audit"
	"github.com/khadijaf/securevault/pkg/auth"
	"github.com/khadijaf/securevault/pkg/crypto"
	"github.com/khadijaf/securevault/pkg/settings"
	"github.com/khadijaf/securevault/pkg/vault"
)

// KeyFileName is the symmetric key file inside the data directory.
const KeyFileName = "vault.key"

// app holds the wired-up core components for one CLI invocation.
type app struct {
	cfg      config.Config
	store    *storage.SQLiteStore
	audit    *audit.Logger
	vault    *vault.Store
	users    *auth.Directory
	gate     *auth.Gate
	settings *settings.Store
}

var (
	a        app
	flagUser string
	flagDir  string
)

var rootCmd = &cobra.Command{
	Use:   "securevault",
	Short: "securevault is a single-user local credential vault",
	Long: `A local password manager that stores credentials encrypted at rest
and keeps an audit trail of security-relevant actions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagDir)
		if err != nil {
			return err
		}

		store, err := storage.OpenSQLite(cfg.DataDir)
		if err != nil {
			return err
		}

		cipher, err := crypto.NewCipher(filepath.Join(cfg.DataDir, KeyFileName))
		if err != nil {
			store.Close()
			return err
		}

		logger := audit.NewLogger(store)
		users := auth.NewDirectory(store, logger, cfg.BcryptCost)
		cfgStore := settings.NewStore(store)

		a = app{
			cfg:      cfg,
			store:    store,
			audit:    logger,
			vault:    vault.NewStore(store, cipher, logger, users.Email),
			users:    users,
			gate:     auth.NewGate(users, logger, cfgStore),
			settings: cfgStore,
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if a.store != nil {
			a.store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "Username to act as")
	rootCmd.PersistentFlags().StringVar(&flagDir, "data-dir", "", "Data directory (default ~/.securevault)")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(resetPasswordCmd)
}

// ensureSession authenticates the invoking user and returns the session.
// The username comes from --user or an interactive prompt.
func ensureSession() (*auth.Session, error) {
	username := flagUser
	if username == "" {
		var err error
		username, err = promptLine("Username: ")
		if err != nil {
			return nil, err
		}
	}

	password, err := promptPassword("Master password: ")
	if err != nil {
		return nil, err
	}

	session, err := a.gate.Authenticate(username, password)
	if err != nil {
		if errors.Is(err, auth.ErrAccountLocked) {
			return nil, fmt.Errorf("account locked after too many failed attempts")
		}
		return nil, err
	}
	return session, nil
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	// Piped input falls back to a plain line read.
	return readLine()
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	return readLine()
}

func readLine() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

var registerCmd = &cobra.Command{
	Use:   "register [username]",
	Short: "Create a new vault account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		name, err := promptLine("Display name: ")
		if err != nil {
			return err
		}
		email, err := promptLine("Email: ")
		if err != nil {
			return err
		}

		password, err := promptPassword("Master password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm master password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		if err := a.users.Register(username, name, email, password); err != nil {
			return err
		}

		fmt.Printf("Account '%s' created\n", username)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Verify the master password for an account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			flagUser = args[0]
		}
		session, err := ensureSession()
		if err != nil {
			return err
		}
		fmt.Printf("Logged in as %s (%s)\n", session.Username, session.Email)
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password [username]",
	Short: "Replace the master password for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		password, err := promptPassword("New master password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm new master password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		if err := a.users.ResetPassword(username, password); err != nil {
			return err
		}

		fmt.Printf("Master password for '%s' reset\n", username)
		return nil
	},
}
