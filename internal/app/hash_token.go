package app

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"horse.fit/jachtproef/internal/auth"
)

// runHashToken prints a bcrypt hash for API_TOKEN_HASH. Without --token or
// --stdin a fresh token is generated and printed once.
func runHashToken(args []string) int {
	fs := flag.NewFlagSet("hash-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	token := fs.String("token", "", "Token to hash")
	fromStdin := fs.Bool("stdin", false, "Read the token from the first line of stdin")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	value := strings.TrimSpace(*token)
	if *fromStdin {
		if value != "" {
			fmt.Fprintln(os.Stderr, "--token and --stdin are mutually exclusive")
			return 2
		}
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "Failed to read token: %v\n", err)
			return 1
		}
		value = strings.TrimSpace(line)
	}

	generated := value == ""
	if generated {
		var err error
		value, err = auth.GenerateToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate token: %v\n", err)
			return 1
		}
	}

	hash, err := auth.HashToken(value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash token: %v\n", err)
		return 1
	}

	if generated {
		fmt.Printf("token=%s\n", value)
	}
	fmt.Printf("API_TOKEN_HASH=%s\n", hash)
	return 0
}
