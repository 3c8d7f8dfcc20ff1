package main

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/khadijaf/securevault/pkg/settings"
	"github.com/khadijaf/securevault/pkg/strength"
)

// Flags for settings set
var (
	setAutoLock    int
	setLockout     int
	setMaxAttempts int
)

func init() {
	rootCmd.AddCommand(strengthCmd)
	rootCmd.AddCommand(settingsCmd)

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)

	settingsSetCmd.Flags().IntVar(&setAutoLock, "auto-lock", 0, "Auto-lock after this many minutes of inactivity")
	settingsSetCmd.Flags().IntVar(&setLockout, "lockout", 0, "Lockout duration in minutes after too many failures")
	settingsSetCmd.Flags().IntVar(&setMaxAttempts, "max-attempts", 0, "Failed attempts before lockout")
}

var strengthCmd = &cobra.Command{
	Use:   "strength [password]",
	Short: "Evaluate a password against the strength criteria",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			var err error
			password, err = promptPassword("Password to evaluate: ")
			if err != nil {
				return err
			}
		}

		r := strength.Check(password)

		criteria := []struct {
			met  bool
			text string
		}{
			{r.HasUpper, "Contains uppercase"},
			{r.HasLower, "Contains lowercase"},
			{r.HasDigit, "Contains numbers"},
			{r.HasSymbol, "Contains symbols"},
			{r.LongBonus, fmt.Sprintf("Length %d or more", strength.BonusLength)},
		}
		for _, c := range criteria {
			mark := "✗"
			if c.met {
				mark = "✓"
			}
			fmt.Printf("  %s %s\n", mark, c.text)
		}
		if utf8.RuneCountInString(password) < strength.MinLength {
			fmt.Printf("  ✗ At least %d characters\n", strength.MinLength)
		}
		fmt.Printf("Strength: %s (score %d/5)\n", r.Classification, r.Score)
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Per-user security settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current security settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := ensureSession()
		if err != nil {
			return err
		}

		cfg, err := a.settings.Get(session.Username)
		if err != nil {
			return err
		}

		fmt.Printf("Auto-lock:           %d minute(s)\n", cfg.AutoLockMinutes)
		fmt.Printf("Lockout duration:    %d minute(s)\n", cfg.LockoutMinutes)
		fmt.Printf("Max failed attempts: %d\n", cfg.MaxFailedAttempts)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change security settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := ensureSession()
		if err != nil {
			return err
		}

		cfg, err := a.settings.Get(session.Username)
		if err != nil {
			return err
		}

		if setAutoLock > 0 {
			cfg.AutoLockMinutes = setAutoLock
		}
		if setLockout > 0 {
			cfg.LockoutMinutes = setLockout
		}
		if setMaxAttempts > 0 {
			cfg.MaxFailedAttempts = setMaxAttempts
		}

		if err := a.settings.Set(session.Username, cfg); err != nil {
			if errors.Is(err, settings.ErrInvalidSetting) {
				return fmt.Errorf("settings values must be positive")
			}
			return err
		}

		fmt.Println("Settings saved")
		return nil
	},
}
