package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/panelcore/internal/directory"
)

var hashCost int

var hashCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Read a password from stdin and print a bcrypt hash for the users file",
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password on stdin")
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return errors.New("empty password")
		}
		hash, err := directory.HashPassword(password, hashCost)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return err
	},
}

func init() {
	hashCmd.Flags().IntVar(&hashCost, "cost", 0, "bcrypt cost (default 10)")
	rootCmd.AddCommand(hashCmd)
}
