package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin panel utilities",
	}
	cmd.AddCommand(hashPasswordCmd())
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Generate a bcrypt hash for the admin password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				fmt.Print("Password: ")
				scanner := bufio.NewScanner(cmd.InOrStdin())
				if scanner.Scan() {
					password = scanner.Text()
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
			}

			password = strings.TrimSpace(password)
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}

			fmt.Println(string(hash))
			fmt.Println()
			fmt.Println("Set this as admin.password_hash in your config file,")
			fmt.Println("or export it as ADMIN_PASSWORD_HASH.")
			return nil
		},
	}
}
