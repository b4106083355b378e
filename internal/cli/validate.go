package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const redacted = "***"

// runValidate resolves every config layer and prints the effective settings.
func runValidate(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file (default: search for .rageval/config.yml)")
		quiet := flags.Bool("quiet", false, "Only report whether the config is valid")
		if err := flags.Parse(args); err != nil {
			if err == flag.ErrHelp {
				printCommandUsage(cmd, stdout)
				return ExitOK
			}
			fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}
		if flags.NArg() > 0 {
			fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		cfg, _, _, err := loadSettings(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Validation failed:\n%v\n", err)
			return ExitError
		}
		if *quiet {
			fmt.Fprintln(stdout, "Config OK")
			return ExitOK
		}
		if cfg.Backend.APIKey != "" {
			cfg.Backend.APIKey = redacted
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to render settings: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "# mode: %s\n", cfg.Mode())
		stdout.Write(data)
		fmt.Fprintln(stdout, "Config OK")
		return ExitOK
	}
}
