package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
)

type readRequest struct {
	area    omronfins.MemoryArea
	address uint16
	bit     byte
	count   uint16
	typ     omronfins.ElementType
}

// parseRead parses "<area> <address[.bit]> <count>". typeName defaults to USHORT.
func parseRead(args []string, typeName string) (readRequest, error) {
	if len(args) != 3 {
		return readRequest{}, fmt.Errorf("usage: read <area> <address[.bit]> <count>")
	}
	area, err := omronfins.ParseMemoryArea(args[0])
	if err != nil {
		return readRequest{}, err
	}
	address, bit, err := parseAddress(args[1])
	if err != nil {
		return readRequest{}, err
	}
	count, err := parseUint16(args[2])
	if err != nil {
		return readRequest{}, err
	}
	if typeName == "" {
		typeName = "USHORT"
	}
	typ, err := omronfins.ParseElementType(typeName)
	if err != nil {
		return readRequest{}, err
	}
	return readRequest{area: area, address: address, bit: bit, count: count, typ: typ}, nil
}

func (r readRequest) run(ctx context.Context, client omronfins.MemoryReader, out output) error {
	start := time.Now()
	resp, err := client.ReadMemArea(ctx, r.area, r.address, r.bit, r.count, r.typ)
	if err != nil {
		return err
	}
	res := newResult("read", r.area, r.address, r.bit, resp.CompletionCode, time.Since(start))
	res.Type = r.typ.String()
	res.Value = displayValue(resp.Value)
	return out.printResult(res)
}

type writeRequest struct {
	area    omronfins.MemoryArea
	address uint16
	bit     byte
	count   uint16
	values  omronfins.WriteValues
}

// parseWrite parses "<area> <address[.bit]> <type> <value...>". One value is
// written as a scalar, several as a list. A zero count means one per value.
func parseWrite(args []string, count uint16) (writeRequest, error) {
	if len(args) < 4 {
		return writeRequest{}, fmt.Errorf("usage: write <area> <address[.bit]> <type> <value...>")
	}
	area, err := omronfins.ParseMemoryArea(args[0])
	if err != nil {
		return writeRequest{}, err
	}
	address, bit, err := parseAddress(args[1])
	if err != nil {
		return writeRequest{}, err
	}
	typ, err := omronfins.ParseElementType(args[2])
	if err != nil {
		return writeRequest{}, err
	}

	values := make([]omronfins.Value, 0, len(args)-3)
	for _, s := range args[3:] {
		v, err := omronfins.ParseValue(typ, s)
		if err != nil {
			return writeRequest{}, err
		}
		values = append(values, v)
	}

	w := writeRequest{area: area, address: address, bit: bit, count: count}
	if len(values) == 1 {
		w.values = omronfins.Single(values[0])
	} else {
		w.values = omronfins.Many(values...)
	}
	if w.count == 0 {
		w.count = uint16(len(values))
	}
	return w, nil
}

func (w writeRequest) run(ctx context.Context, client omronfins.MemoryWriter, out output) error {
	start := time.Now()
	code, err := client.WriteMemArea(ctx, w.area, w.address, w.bit, w.count, w.values)
	if err != nil {
		return err
	}
	return out.printResult(newResult("write", w.area, w.address, w.bit, code, time.Since(start)))
}

// parseAddress accepts "100" or "100.3" (word 100, bit 3).
func parseAddress(s string) (uint16, byte, error) {
	word, bitText, hasBit := strings.Cut(s, ".")
	address, err := parseUint16(word)
	if err != nil {
		return 0, 0, err
	}
	if !hasBit {
		return address, 0, nil
	}
	bit, err := parseUintWithSize(bitText, 8)
	if err != nil {
		return 0, 0, err
	}
	return address, byte(bit), nil
}

func parseUint16(s string) (uint16, error) {
	v, err := parseUintWithSize(s, 16)
	return uint16(v), err
}

func parseUintWithSize(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return v, nil
}
