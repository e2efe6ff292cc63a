package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	tyson "github.com/tysonlabs/tyson.go/runtime"
)

// CLI defines the tysoncat command-line interface.
//
// We deliberately keep it minimal:
//   - default mode encodes JSON (file or stdin) to the tyson form
//   - --decode renders a tyson file back to JSON, one value per line
//   - --cbor bridges the encoded values to CBOR instead
type CLI struct {
	Input    string `arg:"" optional:"" help:"Input file (defaults to stdin)"`
	Output   string `short:"o" help:"Output file (defaults to stdout)"`
	Decode   bool   `short:"d" help:"Decode tyson input back to JSON"`
	Multi    bool   `short:"m" help:"Accept multiple top-level values"`
	Unsorted bool   `help:"Keep object keys in insertion order instead of sorting"`
	CBOR     bool   `help:"Emit CBOR instead of the tyson form when encoding"`
	Hex      bool   `short:"x" help:"Hex-dump binary output"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tysoncat"),
		kong.Description("Transcode JSON to the tyson binary form and back."),
	)

	if err := run(&cli); err != nil {
		ctx.FatalIfErrorf(err)
	}
}

func run(cli *CLI) error {
	data, err := readInput(cli.Input)
	if err != nil {
		return err
	}

	out, err := openOutput(cli.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	if cli.Decode {
		return decode(out, data, cli.Multi)
	}
	return encode(out, data, cli)
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return data, nil
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %q: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func encode(out io.Writer, data []byte, cli *CLI) error {
	p := tyson.NewParser()
	p.Options.SortAttributeNames = !cli.Unsorted

	if _, err := p.Parse(data, cli.Multi); err != nil {
		return fmt.Errorf("parse failed at input offset %d: %w", p.ErrorPos(), err)
	}

	enc := p.Bytes()
	if cli.CBOR {
		var cborOut []byte
		rest := enc
		for len(rest) > 0 {
			var one []byte
			var err error
			one, rest, err = tyson.ToCBOR(rest)
			if err != nil {
				return err
			}
			cborOut = append(cborOut, one...)
		}
		enc = cborOut
	}

	if cli.Hex {
		_, err := io.WriteString(out, hex.Dump(enc))
		return err
	}
	_, err := out.Write(enc)
	return err
}

func decode(out io.Writer, data []byte, multi bool) error {
	if err := tyson.ValidateDocument(data); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	rest := data
	n := 0
	for len(rest) > 0 {
		var js []byte
		var err error
		js, rest, err = tyson.ToJSONBytes(rest)
		if err != nil {
			return err
		}
		n++
		if !multi && (n > 1 || len(rest) > 0) {
			return fmt.Errorf("input holds more than one value; use --multi")
		}
		if _, err := out.Write(append(js, '\n')); err != nil {
			return err
		}
	}
	return nil
}
