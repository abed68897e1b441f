// crashdump decodes a raw non-volatile memory image (an EEPROM or flash
// read-out) and prints the crash record it holds, in the same text form
// the device logs at boot, or as CBOR for tooling.
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"devicediag-go/crash"
	"devicediag-go/errcode"
)

// Tunables mirrors the device's storage settings. It can come from a YAML
// file; flags given explicitly win.
type Tunables struct {
	StorageOffset int64 `yaml:"storage_offset"`
	TraceMax      int   `yaml:"trace_max"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errcode.Of(err) == errcode.NoRecord {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	tun := Tunables{TraceMax: crash.DefaultTraceMax}
	var image, cfgPath, format string

	fs := pflag.NewFlagSet("crashdump", pflag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.StringVarP(&image, "image", "i", "", "raw NVM image to decode (required)")
	fs.StringVarP(&cfgPath, "config", "c", "", "YAML file with storage_offset and trace_max")
	fs.Int64Var(&tun.StorageOffset, "offset", 0, "byte offset of the crash slot in the image")
	fs.IntVar(&tun.TraceMax, "trace-max", crash.DefaultTraceMax, "maximum trace bytes the firmware stores")
	fs.StringVarP(&format, "format", "f", "text", "output format: text or cbor (hex)")
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return &errcode.E{C: errcode.InvalidParams, Op: "crashdump", Err: err}
	}
	if image == "" && fs.NArg() > 0 {
		image = fs.Arg(0)
	}
	if image == "" {
		return &errcode.E{C: errcode.InvalidParams, Op: "crashdump", Msg: "--image is required"}
	}

	if cfgPath != "" {
		fileTun, err := loadTunables(cfgPath)
		if err != nil {
			return err
		}
		if !fs.Changed("offset") {
			tun.StorageOffset = fileTun.StorageOffset
		}
		if !fs.Changed("trace-max") && fileTun.TraceMax > 0 {
			tun.TraceMax = fileTun.TraceMax
		}
	}
	if tun.TraceMax <= 0 || tun.TraceMax > crash.MaxTraceMax || tun.StorageOffset < 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "crashdump", Msg: fmt.Sprintf("offset=%d trace-max=%d", tun.StorageOffset, tun.TraceMax)}
	}

	raw, err := os.ReadFile(image)
	if err != nil {
		return errcode.Wrap(errcode.Storage, "crashdump", err)
	}
	if tun.StorageOffset >= int64(len(raw)) {
		return &errcode.E{C: errcode.Truncated, Op: "crashdump", Msg: "offset beyond end of image"}
	}
	c, ok := crash.Decode(raw[tun.StorageOffset:], tun.TraceMax)
	if !ok {
		return &errcode.E{C: errcode.NoRecord, Op: "crashdump", Msg: "no valid crash record at offset " + fmt.Sprint(tun.StorageOffset)}
	}

	switch format {
	case "text":
		crash.Report(printer{stdout}, c)
	case "cbor":
		b, err := crash.MarshalCBOR(c)
		if err != nil {
			return errcode.Wrap(errcode.Error, "crashdump", err)
		}
		fmt.Fprintln(stdout, hex.EncodeToString(b))
	default:
		return &errcode.E{C: errcode.InvalidParams, Op: "crashdump", Msg: "unknown format " + format}
	}
	return nil
}

func loadTunables(path string) (Tunables, error) {
	var t Tunables
	data, err := os.ReadFile(path)
	if err != nil {
		return t, errcode.Wrap(errcode.Storage, "crashdump.config", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, &errcode.E{C: errcode.InvalidParams, Op: "crashdump.config", Err: err}
	}
	return t, nil
}

// printer satisfies crash.Printer on top of a plain writer.
type printer struct{ w io.Writer }

func (p printer) Msg(s string) bool {
	_, err := io.WriteString(p.w, s)
	return err == nil
}

func (p printer) Msgf(format string, args ...any) bool {
	_, err := fmt.Fprintf(p.w, format, args...)
	return err == nil
}
