// Command mstflash probes, reads, writes and chip-erases the SPI-NOR
// flash behind a Realtek MST display retimer, reachable only through the
// retimer MCU's I2C control channel.
// Run with -mock to use a simulated MCU (no I2C device required).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkszuba/flashrom/internal/i2c"
	"github.com/mkszuba/flashrom/internal/mst"
	"github.com/mkszuba/flashrom/internal/params"
	"github.com/mkszuba/flashrom/internal/programmer"
	"github.com/mkszuba/flashrom/internal/spi"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [flags] <verb> [file]

Verbs:
  probe          read and print the flash JEDEC ID
  read <file>    read -n bytes from -addr into file
  write <file>   program file into flash at -addr
  erase          erase the entire chip

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	var (
		paramStr  = flag.String("p", "", `programmer parameters, e.g. "bus=8"`)
		transport = flag.String("transport", "dev", "i2c transport: dev (/dev/i2c-N) or periph")
		mock      = flag.Bool("mock", false, "use a simulated MCU (no I2C device required)")
		debug     = flag.Bool("debug", false, "enable debug logging")
		addr      = flag.Uint("addr", 0, "flash start address")
		length    = flag.Int("n", 0, "number of bytes to read")
	)
	flag.Usage = usage
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, flag.Args(), *paramStr, *transport, *mock, uint32(*addr), *length); err != nil {
		slog.Error("mstflash failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, paramStr, transport string, mock bool, addr uint32, length int) error {
	p, err := params.Parse(paramStr)
	if err != nil {
		return err
	}

	opts := programmer.Opts{Params: p}
	switch transport {
	case "dev":
	case "periph":
		opts.UsePeriph = true
	default:
		return fmt.Errorf("unknown transport %q, want dev or periph", transport)
	}
	if mock {
		slog.Info("using mock MCU transport")
		opts.Transport = i2c.NewMock()
	}

	initFn, ok := programmer.Lookup(mst.Name)
	if !ok {
		return fmt.Errorf("programmer %q not registered (available: %s)",
			mst.Name, strings.Join(programmer.Names(), ", "))
	}

	var shutdown programmer.Stack
	master, err := initFn(ctx, opts, &shutdown)
	if err != nil {
		return err
	}
	defer func() {
		if serr := shutdown.Run(); serr != nil {
			slog.Error("shutdown", "err", serr)
		}
	}()

	switch verb, rest := args[0], args[1:]; verb {
	case "probe":
		return probe(ctx, master)
	case "read":
		if len(rest) != 1 {
			return fmt.Errorf("read needs an output file")
		}
		if length <= 0 {
			return fmt.Errorf("read needs -n > 0")
		}
		return readFlash(ctx, master, rest[0], addr, length)
	case "write":
		if len(rest) != 1 {
			return fmt.Errorf("write needs an input file")
		}
		return writeFlash(ctx, master, rest[0], addr)
	case "erase":
		return eraseChip(ctx, master)
	default:
		return fmt.Errorf("unknown verb %q", verb)
	}
}

func probe(ctx context.Context, m spi.Master) error {
	var id [3]byte
	if err := m.Command(ctx, []byte{spi.OpRDID}, id[:]); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	fmt.Printf("JEDEC ID %02x %02x %02x (vendor 0x%02x, device 0x%02x%02x)\n",
		id[0], id[1], id[2], id[0], id[1], id[2])
	return nil
}

func readFlash(ctx context.Context, m spi.Master, path string, addr uint32, length int) error {
	buf := make([]byte, length)
	if err := m.ReadAt(ctx, buf, addr); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return err
	}
	slog.Info("flash read", "bytes", length, "addr", fmt.Sprintf("0x%06x", addr), "file", path)
	return nil
}

func writeFlash(ctx context.Context, m spi.Master, path string, addr uint32) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.WriteAt(ctx, data, addr); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	slog.Info("flash written", "bytes", len(data), "addr", fmt.Sprintf("0x%06x", addr), "file", path)
	return nil
}

func eraseChip(ctx context.Context, m spi.Master) error {
	cmds := []spi.CommandOp{
		{W: []byte{spi.OpWREN}},
		{W: []byte{spi.OpChipEraseC7}},
	}
	if err := spi.RunCommands(ctx, m, cmds); err != nil {
		return fmt.Errorf("erase: %w", err)
	}
	slog.Info("chip erased")
	return nil
}
