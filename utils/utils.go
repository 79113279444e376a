package utils

import (
	"fmt"
	"os"
	"strings"
)

var commands = []string{"scan", "add", "extract", "replay", "initdb"}

// ParseArguments converts command-line arguments into a map of flags and
// values, with the command (scan/add/extract/replay/initdb) under "command".
func ParseArguments() map[string]string {
	args := make(map[string]string)

	command := ""
	commandIndex := -1
	for i := 1; i < len(os.Args); i++ {
		for _, c := range commands {
			if os.Args[i] == c {
				command = c
				commandIndex = i
				break
			}
		}
		if command != "" {
			break
		}
	}

	if command != "" {
		args["command"] = command
	}

	// Process all arguments, skipping the command
	for i := 1; i < len(os.Args); i++ {
		if i == commandIndex {
			continue
		}

		arg := os.Args[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Check if this is a boolean flag (no value)
			if i+1 >= len(os.Args) || strings.HasPrefix(os.Args[i+1], "--") {
				args[flagName] = "true"
			} else {
				args[flagName] = os.Args[i+1]
				i++ // Skip the value in the next iteration
			}
		}
	}

	return args
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s scan --folder=PATH [--force] [common flags]\n", os.Args[0])
	fmt.Printf("  %s add --picture=PATH [common flags]\n", os.Args[0])
	fmt.Printf("  %s extract --out=FILE [common flags]\n", os.Args[0])
	fmt.Printf("  %s replay --in=FILE [common flags]\n", os.Args[0])
	fmt.Printf("  %s initdb [common flags]\n", os.Args[0])
	fmt.Printf("\nCommands:\n")
	fmt.Printf("  scan     : recursively index a directory of photos\n")
	fmt.Printf("  add      : index a single photo file\n")
	fmt.Printf("  extract  : dump the record journal into a snapshot file\n")
	fmt.Printf("  replay   : re-insert a snapshot's records into the database\n")
	fmt.Printf("  initdb   : initialize the database schema (WIPES existing data)\n")
	fmt.Printf("\nCommon flags:\n")
	fmt.Printf("  --config=FILE  : configuration file (default: photodb.yaml)\n")
	fmt.Printf("  --db=PATH      : database file, overriding the configuration\n")
	fmt.Printf("  --journal=PATH : journal file, overriding the configuration\n")
	fmt.Printf("  --force        : rewrite records for already-indexed paths\n")
	fmt.Printf("  --debug        : enable debug logging\n")
	fmt.Printf("  --logfile=PATH : debug log file (default: photodb.log)\n")
	fmt.Printf("  --errorlog=PATH: error log file, overriding the configuration\n")
	fmt.Printf("  --version      : print version and exit\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s initdb\n", os.Args[0])
	fmt.Printf("  %s scan --folder=/photos/2024 --debug\n", os.Args[0])
	fmt.Printf("  %s extract --out=records.jsonl\n", os.Args[0])
}
