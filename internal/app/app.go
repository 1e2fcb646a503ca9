package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "sync":
		return runSync(args[1:])
	case "match":
		return runMatch(args[1:])
	case "close-expired":
		return runCloseExpired(args[1:])
	case "matches":
		return runMatches(args[1:])
	case "runs":
		return runRuns(args[1:])
	case "serve":
		return runServe(args[1:])
	case "hash-token":
		return runHashToken(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "jachtproef CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  jachtproef <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health         Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  validate       Validate calendar export JSON files against the export schema")
	fmt.Fprintln(os.Stderr, "  sync           Fetch every source and reconcile the match store")
	fmt.Fprintln(os.Stderr, "  match          Pair the listings of two calendars and print the result")
	fmt.Fprintln(os.Stderr, "  close-expired  Close open matches dated before today")
	fmt.Fprintln(os.Stderr, "  matches        List stored matches")
	fmt.Fprintln(os.Stderr, "  runs           List recent sync runs")
	fmt.Fprintln(os.Stderr, "  serve          Start Echo API server")
	fmt.Fprintln(os.Stderr, "  hash-token     Generate or hash an operator API token")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"jachtproef <command> -h\" for command-specific flags.")
}
