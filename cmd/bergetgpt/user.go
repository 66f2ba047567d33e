package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mickekring/berget-gpt/internal/auth"
	"github.com/mickekring/berget-gpt/internal/store"
)

var (
	userCreatePassword  string
	userCreateEmail     string
	userCreateFirstName string
	userCreateLastName  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a user in the record store",
	Long:  `Create a user account with a bcrypt-hashed password. The account can log in immediately.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		if userCreatePassword == "" {
			return fmt.Errorf("--password is required")
		}

		hash, err := auth.HashPassword(userCreatePassword)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		base := cmd.Context()
		if base == nil {
			base = context.Background()
		}
		ctx, cancel := context.WithTimeout(base, 30*time.Second)
		defer cancel()

		records := store.New(cfg.Store)
		created, err := records.CreateUser(ctx, store.User{
			Username:     username,
			PasswordHash: hash,
			Email:        userCreateEmail,
			FirstName:    userCreateFirstName,
			LastName:     userCreateLastName,
		})
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Printf("User %q created (id %d)\n", created.Username, created.ID)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userCreatePassword, "password", "", "password for the new user")
	userCreateCmd.Flags().StringVar(&userCreateEmail, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&userCreateFirstName, "first-name", "", "first name")
	userCreateCmd.Flags().StringVar(&userCreateLastName, "last-name", "", "last name")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
