// edgectl encodes, decodes and serves edge metadata blobs.
//
//	edgectl [--config path] encode [--out file] key=value...
//	edgectl [--config path] decode [--format text|json|yaml|cbor] [file|-]
//	edgectl [--config path] serve [--addr host:port]
//	edgectl port
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/edgexchange/internal/config"
	"github.com/danmuck/edgexchange/internal/hostaddr"
	"github.com/danmuck/edgexchange/internal/logging"
	"github.com/danmuck/edgexchange/internal/observability"
	"github.com/danmuck/edgexchange/internal/protocol/metadata"
	"github.com/danmuck/edgexchange/internal/render"
	"github.com/danmuck/edgexchange/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

var errUsage = errors.New("usage: edgectl [--config path] <encode|decode|serve|port> [args]")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "edgectl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	global := pflag.NewFlagSet("edgectl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	configPath := global.String("config", "", "path to edgectl TOML config")
	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	logging.ConfigureRuntime(config.LoggingOverride(cfg))

	switch rest[0] {
	case "encode":
		return runEncode(cfg, rest[1:], stdout)
	case "decode":
		return runDecode(cfg, rest[1:], stdin, stdout)
	case "serve":
		return runServe(cfg, rest[1:])
	case "port":
		port := hostaddr.AvailablePort()
		if port == 0 {
			return errors.New("no free port")
		}
		_, err := fmt.Fprintln(stdout, port)
		return err
	default:
		return fmt.Errorf("unknown command %q: %w", rest[0], errUsage)
	}
}

func runEncode(cfg config.Config, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	out := fs.StringP("out", "o", "", "write blob to file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	entries := config.MetadataEntries(cfg)
	for _, arg := range fs.Args() {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("encode: %q is not key=value", arg)
		}
		entries = append(entries, metadata.Entry{Key: key, Value: value})
	}

	blob, err := render.Encode(entries)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if blob == nil {
		return errors.New("encode: no metadata given")
	}
	log.Debug().Int("bytes", len(blob)).Str("blake3", render.Digest(blob)).Msg("edgectl.encode")

	if *out == "" {
		_, err = stdout.Write(blob)
		return err
	}
	return os.WriteFile(*out, blob, 0o644)
}

func runDecode(cfg config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	formatRaw := fs.StringP("format", "f", string(config.OutputFormat(cfg)), "output format: text|json|yaml|cbor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := render.ParseFormat(*formatRaw)
	if err != nil {
		return err
	}

	var blob []byte
	switch src := fs.Args(); {
	case len(src) == 0 || src[0] == "-":
		blob, err = io.ReadAll(stdin)
	case len(src) == 1:
		blob, err = os.ReadFile(src[0])
	default:
		return errors.New("decode: expected at most one input")
	}
	if err != nil {
		return fmt.Errorf("decode: read input: %w", err)
	}

	report, err := render.Decode(blob)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return render.Write(stdout, format, report)
}

func runServe(cfg config.Config, args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addr := fs.String("addr", cfg.Serve.Addr, "listen address (port 0 picks a free port)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	listen, err := hostaddr.Normalize(*addr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(server.Config{
		Addr:        listen,
		CorsOrigins: cfg.Serve.CorsOrigins,
		Token:       cfg.Serve.Token,
		TLSCert:     cfg.Serve.TLSCert,
		TLSKey:      cfg.Serve.TLSKey,
	}, observability.InitLogger(server.NodeName))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
