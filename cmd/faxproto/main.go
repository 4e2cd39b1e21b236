package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/Luvion1/fax-native/bridge"
	"github.com/Luvion1/fax-native/config"
	"github.com/Luvion1/fax-native/gc"
	"github.com/Luvion1/fax-native/wire"
)

func main() {
	var (
		op          = flag.String("op", "", "Operation: encode-tokens, decode-tokens, encode-module, decode-module")
		inFile      = flag.String("in", "", "Input file (- for stdin)")
		outFile     = flag.String("out", "", "Output file (default stdout)")
		configPath  = flag.String("config", "", "Path to fax-native config file")
		version     = flag.Bool("version", false, "Print the bridge version and exit")
		interactive = flag.Bool("i", false, "Interactive token inspector")
	)
	flag.Parse()

	if *version {
		fmt.Println(bridge.Version)
		return
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*inFile, *configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *op == "" || *inFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: faxproto -op <operation> -in <file> [-out file]")
		fmt.Fprintln(os.Stderr, "       faxproto -i [-in file.fax]  (interactive inspector)")
		fmt.Fprintln(os.Stderr, "       faxproto -version")
		fmt.Fprintln(os.Stderr, "Operations: encode-tokens, decode-tokens, encode-module, decode-module")
		os.Exit(1)
	}

	if err := run(*op, *inFile, *outFile, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(op, inFile, outFile, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logger, err := buildLogger(cfg.LogLevel); err == nil {
		gc.SetLogger(logger)
		defer logger.Sync()
	}

	ctx := newContext(cfg)
	defer ctx.Close()

	input, err := readInput(inFile)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var output []byte
	switch op {
	case "encode-tokens":
		view, err := ctx.EncodeTokens(string(input))
		if err != nil {
			return err
		}
		output = view.Bytes()

	case "decode-tokens":
		if err := ctx.DecodeTokens(input); err != nil {
			return err
		}
		output = formatTokens(ctx)

	case "encode-module":
		view, err := ctx.EncodeModule(string(input))
		if err != nil {
			return err
		}
		output = view.Bytes()

	case "decode-module":
		text, err := ctx.DecodeModule(input)
		if err != nil {
			return err
		}
		output = append([]byte(text), '\n')

	default:
		return fmt.Errorf("unknown operation %q", op)
	}

	return writeOutput(outFile, output)
}

// newContext builds a session honoring the codec toggles, so a config
// that disables a codec produces the same "not yet implemented" errors
// a build without it would.
func newContext(cfg *config.Config) *bridge.Context {
	var tokens wire.TokenCodec
	var module wire.ModuleCodec
	if cfg.Codec.Tokens {
		tokens = wire.Tokens()
	}
	if cfg.Codec.Module {
		module = wire.Module()
	}
	return bridge.NewContextWith(tokens, module)
}

func formatTokens(ctx *bridge.Context) []byte {
	var out []byte
	for i := 0; i < ctx.TokenCount(); i++ {
		tok := ctx.TokenAt(i)
		out = append(out, fmt.Sprintf("%d:%d\t%s\t%q\n", tok.Line, tok.Column, tok.Kind, tok.Text)...)
	}
	return out
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}
