package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/careerprep/internal/model"
	"github.com/pavelanni/careerprep/internal/store"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(userAddCmd(), userListCmd(), userActiveCmd("enable", true), userActiveCmd("disable", false))
	return cmd
}

func userAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user account",
		RunE:  runUserAdd,
	}
	f := cmd.Flags()
	f.String("db", "careerprep.db", "SQLite database path")
	f.String("username", "", "Login name (required)")
	f.String("password", "", "Password (or set CAREERPREP_PASSWORD)")
	f.String("display-name", "", "Display name (defaults to username)")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func userListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE:  runUserList,
	}
	cmd.Flags().String("db", "careerprep.db", "SQLite database path")
	addLogFlags(cmd)
	return cmd
}

func userActiveCmd(use string, active bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: strings.ToUpper(use[:1]) + use[1:] + " a user account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUserSetActive(cmd, active)
		},
	}
	f := cmd.Flags()
	f.String("db", "careerprep.db", "SQLite database path")
	f.String("username", "", "Login name (required)")
	addLogFlags(cmd)
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	username := strings.TrimSpace(v.GetString("username"))
	password := v.GetString("password")
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}
	displayName := v.GetString("display-name")
	if displayName == "" {
		displayName = username
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	id, err := db.CreateUser(cmd.Context(), model.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	slog.Info("created user", "username", username, "id", id)
	return nil
}

func runUserList(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	users, err := db.ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Username", "Display Name", "Active", "Created"})
	for _, u := range users {
		table.Append([]string{
			strconv.FormatInt(u.ID, 10),
			u.Username,
			u.DisplayName,
			strconv.FormatBool(u.Active),
			u.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	return nil
}

func runUserSetActive(cmd *cobra.Command, active bool) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	username := v.GetString("username")
	u, err := db.GetUserByUsername(cmd.Context(), username)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return fmt.Errorf("user %q not found", username)
	}
	if err := db.SetUserActive(cmd.Context(), u.ID, active); err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	var revoked int64
	if !active {
		if revoked, err = db.RevokeAuthSessions(cmd.Context(), u.ID); err != nil {
			return fmt.Errorf("revoke logins: %w", err)
		}
	}
	slog.Info("updated user", "username", username, "active", active, "revoked_logins", revoked)
	return nil
}
