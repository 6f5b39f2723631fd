package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/ninthcircle/diceroller/internal/models"
	"github.com/ninthcircle/diceroller/internal/repository"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	RunE:  runUserCreate,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users",
	RunE:  runUserList,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete [login]",
	Short: "Delete a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserDelete,
}

var userResetPasswordCmd = &cobra.Command{
	Use:   "reset-password [login]",
	Short: "Reset user password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserResetPassword,
}

const minPasswordLength = 10

var (
	userLogin    string
	userPassword string
	userName     string
)

func init() {
	userCreateCmd.Flags().StringVar(&userLogin, "login", "", "User login")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "User password (will prompt if not provided)")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "Display name")
	userCreateCmd.MarkFlagRequired("login")

	userCmd.AddCommand(userCreateCmd, userListCmd, userDeleteCmd, userResetPasswordCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	password := userPassword
	if password == "" {
		password, err = promptPassword("Enter password: ")
		if err != nil {
			return err
		}
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(d.db.DB)
	err = users.Create(context.Background(), &models.User{
		Login:        userLogin,
		PasswordHash: hash,
		DisplayName:  userName,
	})
	if errors.Is(err, repository.ErrUserExists) {
		return fmt.Errorf("user %s already exists", userLogin)
	}
	if err != nil {
		return err
	}

	fmt.Printf("User %s created successfully\n", userLogin)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	users, err := repository.NewUserRepository(d.db.DB).List(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("%-6s  %-20s  %-24s  %s\n", "ID", "Login", "Name", "Created")
	fmt.Println(strings.Repeat("-", 80))
	for _, u := range users {
		fmt.Printf("%-6d  %-20s  %-24s  %s\n", u.ID, u.Login, u.DisplayName, u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	login := args[0]

	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Printf("Are you sure you want to delete user %s? [y/N]: ", login)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		fmt.Println("Cancelled")
		return nil
	}

	found, err := repository.NewUserRepository(d.db.DB).Delete(context.Background(), login)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("user %s not found", login)
	}

	fmt.Printf("User %s deleted\n", login)
	return nil
}

func runUserResetPassword(cmd *cobra.Command, args []string) error {
	login := args[0]

	d, err := openDeps(os.Stderr)
	if err != nil {
		return err
	}
	defer d.Close()

	users := repository.NewUserRepository(d.db.DB)
	u, err := users.GetByLogin(context.Background(), login)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %s not found", login)
	}

	password, err := promptPassword("Enter new password: ")
	if err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	if _, err := users.SetPassword(context.Background(), login, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Printf("Password for %s updated successfully\n", login)
	return nil
}

// promptPassword reads a password twice from the terminal without echo
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	if string(pw) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pw), nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
