package main

import (
	"bytes"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// runCLI re-execs the test binary as the CLI itself, so commands that call
// os.Exit can be exercised without killing the test process.
func runCLI(t *testing.T, args ...string) (combinedOutput string, exitCode int) {
	t.Helper()

	helperArgs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
	cmd := exec.Command(os.Args[0], helperArgs...)
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"NO_COLOR=1",
		"CLICOLOR=0",
		"CLICOLOR_FORCE=0",
		"TERM=dumb",
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	switch err := cmd.Run().(type) {
	case nil:
		return out.String(), 0
	case *exec.ExitError:
		return out.String(), err.ExitCode()
	default:
		t.Fatalf("unexpected error running CLI: %v", err)
		return "", 0
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	sep := -1
	for i, a := range os.Args {
		if a == "--" {
			sep = i
			break
		}
	}
	if sep == -1 {
		os.Exit(2)
	}

	cliArgs := os.Args[sep+1:]
	if len(cliArgs) == 0 {
		// A bare invocation only prints the root command's help; refuse it.
		os.Exit(2)
	}

	rootCmd.SetArgs(cliArgs)
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	if err := rootCmd.Execute(); err != nil {
		if msg := strings.TrimSpace(stripANSI(err.Error())); msg != "" {
			_, _ = os.Stderr.WriteString(msg + "\n")
		}
		os.Exit(1)
	}
	os.Exit(0)
}
