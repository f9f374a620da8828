// Package debugconsole is a tiny line-oriented REPL over the engine's
// read-only accessors, kept deliberately outside the core filesystem
// package so no SUPPLEMENTED command can influence a real mount's
// operation semantics.
package debugconsole

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kvfuse-project/kvfuse/internal/engine"
)

// Console reads commands from in and writes responses to out until in is
// exhausted or ctx is canceled.
type Console struct {
	facade *engine.Facade
	in     io.Reader
	out    io.Writer
}

func New(facade *engine.Facade, in io.Reader, out io.Writer) *Console {
	return &Console{facade: facade, in: in, out: out}
}

// Run executes the REPL loop, one line at a time, until EOF.
func (c *Console) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.dispatch(ctx, line)
	}
	return scanner.Err()
}

func (c *Console) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "get_block":
		c.getBlock(ctx, fields[1:])
	case "help":
		fmt.Fprintln(c.out, "commands: get_block <ino> <block_index>")
	default:
		fmt.Fprintf(c.out, "unknown command %q\n", fields[0])
	}
}

func (c *Console) getBlock(ctx context.Context, args []string) {
	ino, index, err := parseBlockArgs(args)
	if err != nil {
		fmt.Fprintln(c.out, err)
		return
	}

	data, found, err := c.facade.GetRawBlock(ctx, ino, index)
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	if !found {
		fmt.Fprintln(c.out, "Not Found")
		return
	}
	fmt.Fprintf(c.out, "%x\n", data)
}

func parseBlockArgs(args []string) (ino, index uint64, err error) {
	if len(args) != 2 {
		return 0, 0, errors.New("usage: get_block <ino> <block_index>")
	}
	ino, err = strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid ino %q: %w", args[0], err)
	}
	index, err = strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid block_index %q: %w", args[1], err)
	}
	return ino, index, nil
}
