package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samduuf/elibrary/app/repository"
	"github.com/samduuf/elibrary/internal/pkg/accounts"
	"github.com/samduuf/elibrary/internal/pkg/database"
	"github.com/samduuf/elibrary/internal/pkg/env"
)

var staff accounts.StaffUser

var rootCmd = &cobra.Command{
	Use:   "createuser <username>",
	Short: "Create or update a local staff account",
	Long: `Create a local employee account that logs in with a password.

If the username already exists its password and role are replaced.

Examples:
  createuser librarian --password 's3cret-pass' --admin
  createuser reader --password 's3cret-pass' --email reader@samduuf.uz`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&staff.Password, "password", "p", "", "password (min 8 characters)")
	rootCmd.Flags().StringVar(&staff.Email, "email", "", "email address")
	rootCmd.Flags().StringVar(&staff.FirstName, "first-name", "", "first name")
	rootCmd.Flags().StringVar(&staff.LastName, "last-name", "", "last name")
	rootCmd.Flags().BoolVar(&staff.Admin, "admin", false, "grant admin access")
	_ = rootCmd.MarkFlagRequired("password")
}

func run(cmd *cobra.Command, args []string) error {
	env.SetupEnvFile()
	database.SetupDatabase()

	factory := repository.NewFactory(database.GetDB())
	svc := accounts.NewService(factory.GetUserRepository(), factory.GetTokenRepository(), nil, nil)

	staff.Username = args[0]
	user, created, err := svc.EnsureStaffUser(staff)
	if err != nil {
		return err
	}

	action := "Updated"
	if created {
		action = "Created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s user %s (id %d, role %s)\n", action, user.Username, user.ID, user.Role)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
