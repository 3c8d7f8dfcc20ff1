package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Flags for add and edit
var (
	addService  string
	addUsername string

	editService  string
	editUsername string
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)

	addCmd.Flags().StringVar(&addService, "service", "", "Service name (e.g. gmail)")
	addCmd.Flags().StringVar(&addUsername, "username", "", "Account username at the service")

	editCmd.Flags().StringVar(&editService, "service", "", "New service name")
	editCmd.Flags().StringVar(&editUsername, "username", "", "New account username")
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a new credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := ensureSession()
		if err != nil {
			return err
		}

		service := addService
		if service == "" {
			if service, err = promptLine("Service: "); err != nil {
				return err
			}
		}
		username := addUsername
		if username == "" {
			if username, err = promptLine("Username at service: "); err != nil {
				return err
			}
		}
		secret, err := promptPassword("Password to store: ")
		if err != nil {
			return err
		}

		cred, err := a.vault.Add(session.Username, service, username, secret)
		if err != nil {
			return err
		}

		fmt.Printf("Stored credential for '%s' (%s)\n", cred.Service, cred.Strength)
		fmt.Printf("ID: %s\n", cred.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := ensureSession()
		if err != nil {
			return err
		}

		creds, err := a.vault.List(session.Username)
		if err != nil {
			return err
		}
		if len(creds) == 0 {
			fmt.Println("No credentials stored")
			return nil
		}

		for _, c := range creds {
			fmt.Printf("%s  %-20s %-20s %-10s %s  %s\n",
				c.ID, c.Service, c.Username, c.Category, c.Strength, c.CreatedAt)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Reveal one credential's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := ensureSession()
		if err != nil {
			return err
		}

		cred, err := a.vault.Get(session.Username, args[0])
		if err != nil {
			return err
		}

		a.vault.LogView(session.Username, cred.Service)

		fmt.Printf("Service:  %s\n", cred.Service)
		fmt.Printf("Username: %s\n", cred.Username)
		fmt.Printf("Password: %s\n", cred.Secret)
		fmt.Printf("Strength: %s\n", cred.Strength)
		fmt.Printf("Created:  %s\n", cred.CreatedAt)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Update a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := ensureSession()
		if err != nil {
			return err
		}

		old, err := a.vault.Get(session.Username, args[0])
		if err != nil {
			return err
		}

		service := editService
		if service == "" {
			service = old.Service
		}
		username := editUsername
		if username == "" {
			username = old.Username
		}

		secret, err := promptPassword("New password (empty to keep current): ")
		if err != nil {
			return err
		}
		if secret == "" {
			secret = old.Secret
		}

		cred, err := a.vault.Update(session.Username, args[0], service, username, secret)
		if err != nil {
			return err
		}

		fmt.Printf("Updated credential for '%s' (%s)\n", cred.Service, cred.Strength)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Permanently remove a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := ensureSession()
		if err != nil {
			return err
		}

		if err := a.vault.Remove(session.Username, args[0]); err != nil {
			return err
		}

		fmt.Println("Credential deleted")
		return nil
	},
}
