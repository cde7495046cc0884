// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/petrel-chat/petrel/cmd/internal/cli"
	"github.com/petrel-chat/petrel/lib/credential"
	"github.com/petrel-chat/petrel/lib/process"
	"github.com/petrel-chat/petrel/lib/secret"
	"github.com/petrel-chat/petrel/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch os.Args[1] {
	case "seal":
		return runSeal(os.Args[2:])
	case "show":
		return runShow(os.Args[2:])
	case "check":
		return runCheck(os.Args[2:])
	case "version":
		version.Print("petrel-credentials")
		return nil
	case "-h", "--help", "help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand: %q", os.Args[1])
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: petrel-credentials <subcommand> [flags]

Subcommands:
  seal     Encrypt a token under a passphrase and write the sealed file
  show     Decrypt a sealed token file and print the token
  check    Report whether a token file is sealed, plaintext, or broken
  version  Print version information

Run 'petrel-credentials <subcommand> --help' for subcommand flags.
`)
}

func runSeal(args []string) error {
	var configFlags cli.ConfigFlags
	flags := pflag.NewFlagSet("seal", pflag.ExitOnError)
	configFlags.AddFlags(flags)
	output := flags.String("output", "", "write the sealed token here (default server.token_file)")
	fromFile := flags.String("from-file", "", "read the plaintext token from this file ('-' for stdin)")
	passphraseFile := flags.String("passphrase-file", "", "read the passphrase from this file ('-' for stdin)")
	flags.Parse(args)

	path, err := tokenFilePath(*output, &configFlags)
	if err != nil {
		return err
	}

	token, err := readToken(*fromFile)
	if err != nil {
		return err
	}
	defer token.Close()

	passphrase, err := readPassphrase(*passphraseFile, true)
	if err != nil {
		return err
	}
	defer passphrase.Close()

	if err := credential.WriteFile(path, token, passphrase); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Sealed token written to %s\n", path)
	return nil
}

func runShow(args []string) error {
	var configFlags cli.ConfigFlags
	flags := pflag.NewFlagSet("show", pflag.ExitOnError)
	configFlags.AddFlags(flags)
	file := flags.String("file", "", "sealed token file to open (default server.token_file)")
	passphraseFile := flags.String("passphrase-file", "", "read the passphrase from this file ('-' for stdin)")
	flags.Parse(args)

	path, err := tokenFilePath(*file, &configFlags)
	if err != nil {
		return err
	}

	passphrase, err := readPassphrase(*passphraseFile, false)
	if err != nil {
		return err
	}
	defer passphrase.Close()

	token, err := credential.ReadFile(path, passphrase)
	if err != nil {
		return err
	}
	defer token.Close()

	fmt.Println(token.String())
	return nil
}

func runCheck(args []string) error {
	var configFlags cli.ConfigFlags
	flags := pflag.NewFlagSet("check", pflag.ExitOnError)
	configFlags.AddFlags(flags)
	file := flags.String("file", "", "token file to inspect (default server.token_file)")
	flags.Parse(args)

	path, err := tokenFilePath(*file, &configFlags)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	defer secret.Zero(data)

	switch {
	case credential.IsSealed(data):
		fmt.Printf("%s: sealed token (age, scrypt passphrase)\n", path)
	case len(bytes.TrimSpace(data)) == 0:
		return fmt.Errorf("%s: empty token file", path)
	default:
		fmt.Printf("%s: plaintext token (seal it with 'petrel-credentials seal')\n", path)
	}
	return nil
}

// tokenFilePath resolves the target token file: the explicit flag
// value when given, otherwise server.token_file from the
// configuration.
func tokenFilePath(flagValue string, configFlags *cli.ConfigFlags) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := configFlags.Load()
	if err != nil {
		return "", err
	}
	if cfg.Server.TokenFile == "" {
		return "", fmt.Errorf("no token file configured (pass a path or set server.token_file)")
	}
	return cfg.Server.TokenFile, nil
}

// readToken obtains the plaintext token: from the named file, from
// stdin when piped, or interactively.
func readToken(fromFile string) (*secret.Buffer, error) {
	if fromFile != "" {
		return secret.ReadFromPath(fromFile)
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return secret.ReadFromPath("-")
	}
	return secret.Prompt("token")
}

// readPassphrase obtains the sealing passphrase. Interactive sealing
// prompts twice and requires both entries to match; a passphrase file
// is taken as-is.
func readPassphrase(fromFile string, confirm bool) (*secret.Buffer, error) {
	if fromFile != "" {
		return secret.ReadFromPath(fromFile)
	}

	passphrase, err := secret.Prompt("passphrase")
	if err != nil {
		return nil, err
	}
	if !confirm {
		return passphrase, nil
	}

	confirmation, err := secret.Prompt("confirm passphrase")
	if err != nil {
		passphrase.Close()
		return nil, err
	}
	defer confirmation.Close()

	if !bytes.Equal(passphrase.Bytes(), confirmation.Bytes()) {
		passphrase.Close()
		return nil, fmt.Errorf("passphrases do not match")
	}
	return passphrase, nil
}
