// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// tlid prints the constructor identifiers of TL declarations. Declarations
// come from the command line or, if there are none, one per line on stdin:
//
//	$ tlid 'boolTrue = Bool;'
//	boolTrue#997275b5
//
// Blank lines and lines starting with // are skipped, so a schema file can be
// piped in directly.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"connectrpc.com/tl"
)

const usage = `Usage: tlid [flags] [declaration ...]

Print the CRC32 constructor identifier of each TL declaration. With no
arguments, declarations are read from stdin, one per line.

Flags:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("tlid", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}
	version := flags.Bool("version", false, "print the version and exit")
	hexOnly := flags.Bool("hex-only", false, "print only the identifier, as 8 hex digits")
	normalize := flags.Bool("normalize", false, "print the normalized declaration that gets hashed")
	verbose := flags.BoolP("verbose", "v", false, "log each declaration to stderr")
	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if *version {
		fmt.Fprintln(stdout, tl.Version)
		return 0
	}
	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Str("app", "tlid").Logger()
	}
	printer := &printer{
		out:       stdout,
		logger:    logger,
		hexOnly:   *hexOnly,
		normalize: *normalize,
	}
	if flags.NArg() > 0 {
		for _, decl := range flags.Args() {
			if err := printer.print(decl); err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
		}
		return 0
	}
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "---") {
			continue
		}
		if err := printer.print(line); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

type printer struct {
	out       io.Writer
	logger    zerolog.Logger
	hexOnly   bool
	normalize bool
}

func (p *printer) print(decl string) error {
	normalized := tl.NormalizeDeclaration(decl)
	id := tl.CombinatorID(decl)
	p.logger.Debug().
		Str("declaration", decl).
		Str("normalized", normalized).
		Msgf("%08x", id)
	var err error
	switch {
	case p.hexOnly:
		_, err = fmt.Fprintf(p.out, "%08x\n", id)
	case p.normalize:
		_, err = fmt.Fprintf(p.out, "%08x\t%s\n", id, normalized)
	default:
		_, err = fmt.Fprintf(p.out, "%s#%08x\n", combinatorName(normalized), id)
	}
	return err
}

func combinatorName(normalized string) string {
	name, _, _ := strings.Cut(normalized, " ")
	return name
}
