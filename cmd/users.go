package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facebot/internal/database"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage bot users and their roles",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users by role",
	RunE:  runUsersList,
}

var usersAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersAdd,
}

var usersRemoveCmd = &cobra.Command{
	Use:   "remove <username>",
	Short: "Remove a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersRemove,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd, usersAddCmd, usersRemoveCmd)

	usersAddCmd.Flags().String("role", database.RoleUser, "Role: user, admin or root_admin")
	usersRemoveCmd.Flags().String("role", database.RoleUser, "Role: user, admin or root_admin")
}

func validRole(role string) bool {
	switch role {
	case database.RoleUser, database.RoleAdmin, database.RoleRootAdmin:
		return true
	}
	return false
}

func runUsersList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	_, store, _, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for _, role := range []string{database.RoleRootAdmin, database.RoleAdmin, database.RoleUser} {
		users, err := store.ListUsers(ctx, role)
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d):\n", role, len(users))
		for _, u := range users {
			fmt.Printf("  %s\n", u.Username)
		}
	}
	return nil
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	role := mustGetString(cmd, "role")
	if !validRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}
	ctx := context.Background()

	_, store, _, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	username := database.NormalizeUsername(args[0])
	if err := store.AddUser(ctx, username, role); err != nil {
		return err
	}
	fmt.Printf("Added %s %s\n", role, username)
	return nil
}

func runUsersRemove(cmd *cobra.Command, args []string) error {
	role := mustGetString(cmd, "role")
	if !validRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}
	ctx := context.Background()

	_, store, _, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	username := database.NormalizeUsername(args[0])
	if err := store.RemoveUser(ctx, username, role); err != nil {
		return err
	}
	fmt.Printf("Removed %s %s\n", role, username)
	return nil
}
