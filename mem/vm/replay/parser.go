package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/pagesim/mem/vm"
)

// ErrSyntax is wrapped by every error caused by a malformed trace line.
var ErrSyntax = errors.New("trace syntax error")

var opsByName = func() map[string]OpKind {
	m := make(map[string]OpKind, len(opNames))
	for kind, name := range opNames {
		m[name] = kind
	}

	return m
}()

// Parse reads a whole trace. The first malformed line stops parsing.
func Parse(r io.Reader) ([]Op, error) {
	var ops []Op

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		op, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if !ok {
			continue
		}

		op.Line = lineNo
		ops = append(ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}

	return ops, nil
}

// ParseString is Parse over an in-memory trace.
func ParseString(trace string) ([]Op, error) {
	return Parse(strings.NewReader(trace))
}

func parseLine(line string) (Op, bool, error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Op{}, false, nil
	}

	kind, found := opsByName[strings.ToLower(fields[0])]
	if !found {
		return Op{}, false, fmt.Errorf("%w: unknown op %q", ErrSyntax, fields[0])
	}

	args := fields[1:]
	op := Op{Kind: kind}

	minArgs, maxArgs := arity(kind)
	if len(args) < minArgs || len(args) > maxArgs {
		return Op{}, false, fmt.Errorf("%w: %s takes %s, got %d",
			ErrSyntax, kind, describeArity(minArgs, maxArgs), len(args))
	}

	vAddr, err := parseNumber(args[0], 64)
	if err != nil {
		return Op{}, false, err
	}

	op.VAddr = vm.VAddr(vAddr)

	switch kind {
	case OpMap:
		pAddr, err := parseNumber(args[1], 64)
		if err != nil {
			return Op{}, false, err
		}

		op.PAddr = vm.PAddr(pAddr)
	case OpWrite:
		data, err := parseNumber(args[1], 8)
		if err != nil {
			return Op{}, false, err
		}

		op.Data = byte(data)
	case OpRead:
		if len(args) == 2 {
			data, err := parseNumber(args[1], 8)
			if err != nil {
				return Op{}, false, err
			}

			op.Data = byte(data)
			op.Expect = true
		}
	}

	return op, true, nil
}

func arity(kind OpKind) (int, int) {
	switch kind {
	case OpMap, OpWrite:
		return 2, 2
	case OpRead:
		return 1, 2
	default:
		return 1, 1
	}
}

func describeArity(minArgs, maxArgs int) string {
	if minArgs == maxArgs {
		return fmt.Sprintf("%d arguments", minArgs)
	}

	return fmt.Sprintf("%d to %d arguments", minArgs, maxArgs)
}

func parseNumber(s string, bitSize int) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, bitSize)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrSyntax, s)
	}

	return n, nil
}
