package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/kinfolk/internal/auth"
	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/store"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage API users",
}

var (
	userEmail    string
	userName     string
	userPassword string
)

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user who can log in to the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := strings.ToLower(strings.TrimSpace(userEmail))
		if email == "" {
			return errors.New("--email is required")
		}
		hash, err := auth.HashPassword(userPassword)
		if err != nil {
			return err
		}

		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		users := store.NewUserStore(db)
		existing, err := users.GetByEmail(cmd.Context(), email)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("user %s already exists", email)
		}

		u, err := users.Create(cmd.Context(), email, strings.TrimSpace(userName), hash)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", u.ID, u.Email)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "password (min 8 characters)")
	userAddCmd.MarkFlagRequired("email")
	userAddCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userAddCmd)
}
