package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khadijaf/securevault/pkg/audit"
)

var auditLimit int

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.AddCommand(auditAllCmd)
	auditCmd.AddCommand(auditAlertsCmd)
	auditCmd.AddCommand(auditLoginsCmd)
	auditCmd.AddCommand(auditPasswordsCmd)

	auditCmd.PersistentFlags().IntVar(&auditLimit, "limit", 0, "Maximum number of events to show")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log views",
}

var auditAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Show all recent activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuditView(func(user string, limit int) []audit.Event {
			return a.audit.LogsForUser(user, limit)
		})
	},
}

var auditAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show warnings and critical alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuditView(a.audit.ErrorAlerts)
	},
}

var auditLoginsCmd = &cobra.Command{
	Use:   "logins",
	Short: "Show login activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuditView(a.audit.LoginActivities)
	},
}

var auditPasswordsCmd = &cobra.Command{
	Use:   "passwords",
	Short: "Show credential operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAuditView(a.audit.PasswordOperations)
	},
}

func runAuditView(view func(user string, limit int) []audit.Event) error {
	session, err := ensureSession()
	if err != nil {
		return err
	}

	limit := auditLimit
	if limit <= 0 {
		limit = a.cfg.AuditViewLimit
	}

	events := view(session.Email, limit)
	if len(events) == 0 {
		fmt.Println("No events recorded")
		return nil
	}

	// Newest first for display.
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		fmt.Printf("%s  %-8s %-26s %s\n", e.Timestamp, e.Severity, e.EventType, e.Description)
		fmt.Printf("%21sIP: %s\n", "", e.IPAddress)
	}
	fmt.Printf("\nTotal: %d events\n", len(events))
	return nil
}
