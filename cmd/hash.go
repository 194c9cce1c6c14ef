package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gameportal/gameportal/internal/auth"
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Generate a password hash for a seed user",
	Long:  `Generate an argon2id password hash suitable for the auth.users section of the config file. The password is read from the terminal without echo.`,
	Run:   runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
}

func runHash(_ *cobra.Command, _ []string) {
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("failed to read password: %v", err)
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	fmt.Println(hash)
}
