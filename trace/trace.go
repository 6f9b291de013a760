// Package trace reads and writes memory-access traces in the valgrind lackey
// format, one record per line:
//
//	I 0400d7d4,8
//	 L 7ff0005c8,8
//	 S 7ff0005c8,8
//	 M 0421c7f0,4
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Op is the kind of memory operation in a trace record.
type Op byte

const (
	// Instruction is an instruction fetch. It does not touch the data cache.
	Instruction Op = 'I'
	// Load is a data read.
	Load Op = 'L'
	// Store is a data write.
	Store Op = 'S'
	// Modify is a read followed by a write to the same address.
	Modify Op = 'M'
)

// ErrUnknownOp is returned for an operation letter other than I, L, S, or M.
var ErrUnknownOp = errors.New("unknown operation")

// ParseOp converts an operation letter into an Op.
func ParseOp(c byte) (Op, error) {
	switch op := Op(c); op {
	case Instruction, Load, Store, Modify:
		return op, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownOp, c)
	}
}

func (o Op) String() string {
	return string(o)
}

// Name returns a lowercase word for the operation.
func (o Op) Name() string {
	switch o {
	case Instruction:
		return "instruction"
	case Load:
		return "load"
	case Store:
		return "store"
	case Modify:
		return "modify"
	default:
		return fmt.Sprintf("op(%d)", byte(o))
	}
}

// Record is one line of a trace.
type Record struct {
	Op      Op
	Address uint64
	Size    uint64
}

// String renders the record as it appears in verbose output, e.g. "L 10,1".
func (r Record) String() string {
	return fmt.Sprintf("%s %x,%d", r.Op, r.Address, r.Size)
}

// ParseError reports a malformed trace line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trace line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine parses one non-blank trace line.
func ParseLine(text string) (Record, error) {
	fields := strings.TrimSpace(text)
	if len(fields) < 2 {
		return Record{}, errors.New("line too short")
	}

	op, err := ParseOp(fields[0])
	if err != nil {
		return Record{}, err
	}

	rest := strings.TrimSpace(fields[1:])
	addrText, sizeText, found := strings.Cut(rest, ",")
	if !found {
		return Record{}, errors.New("missing ',' between address and size")
	}

	addrText = strings.TrimSpace(addrText)
	if len(addrText) > 2 && addrText[0] == '0' && (addrText[1] == 'x' || addrText[1] == 'X') {
		addrText = addrText[2:]
	}

	addr, err := strconv.ParseUint(addrText, 16, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad address: %w", err)
	}

	size, err := strconv.ParseUint(strings.TrimSpace(sizeText), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("bad size: %w", err)
	}

	return Record{Op: op, Address: addr, Size: size}, nil
}

// Reader reads trace records from a stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next record. It returns io.EOF after the last record.
// Blank lines are skipped.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++

		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		rec, err := ParseLine(text)
		if err != nil {
			return Record{}, &ParseError{Line: r.line, Text: text, Err: err}
		}

		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to read trace: %w", err)
	}

	return Record{}, io.EOF
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int {
	return r.line
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var records []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// Load reads a whole trace file.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return NewReader(f).ReadAll()
}

// Write writes records in the lackey format. Instruction records start in
// column 0 and data records are indented by one space.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)

	for _, rec := range records {
		prefix := " "
		if rec.Op == Instruction {
			prefix = ""
		}

		if _, err := fmt.Fprintf(bw, "%s%s %08x,%d\n", prefix, rec.Op, rec.Address, rec.Size); err != nil {
			return fmt.Errorf("failed to write trace: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}

	return nil
}
