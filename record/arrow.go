package record

import (
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/sim"
)

// AccessSchema is the Arrow schema of the access log.
var AccessSchema = arrow.NewSchema([]arrow.Field{
	{Name: "seq", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "op", Type: arrow.BinaryTypes.String},
	{Name: "address", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "size", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "tag", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "set_index", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "outcome", Type: arrow.BinaryTypes.String},
	{Name: "evicted_tag", Type: arrow.PrimitiveTypes.Uint64, Nullable: true},
	{Name: "extra_hit", Type: arrow.FixedWidthTypes.Boolean},
}, nil)

// ArrowRecorder writes the access log as an Arrow IPC stream, one record
// batch per batchSize events.
type ArrowRecorder struct {
	file      *os.File
	writer    *ipc.Writer
	builder   *array.RecordBuilder
	batchSize int
	rows      int
	closed    bool
}

// NewArrowRecorder creates the stream file at path.
func NewArrowRecorder(path string, batchSize int) (*ArrowRecorder, error) {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow file: %w", err)
	}

	return &ArrowRecorder{
		file:      f,
		writer:    ipc.NewWriter(f, ipc.WithSchema(AccessSchema)),
		builder:   array.NewRecordBuilder(memory.DefaultAllocator, AccessSchema),
		batchSize: batchSize,
	}, nil
}

// Record appends one event to the current batch.
func (r *ArrowRecorder) Record(event sim.Event) error {
	if r.closed {
		return fmt.Errorf("arrow recorder is closed")
	}

	b := r.builder
	b.Field(0).(*array.Uint64Builder).Append(event.Seq)
	b.Field(1).(*array.StringBuilder).Append(event.Op.Name())
	b.Field(2).(*array.Uint64Builder).Append(event.Address)
	b.Field(3).(*array.Uint64Builder).Append(event.Size)
	b.Field(4).(*array.Uint64Builder).Append(event.Tag)
	b.Field(5).(*array.Uint64Builder).Append(event.Set)
	b.Field(6).(*array.StringBuilder).Append(event.Kind.String())

	evicted := b.Field(7).(*array.Uint64Builder)
	if event.Kind == cache.Miss {
		evicted.Append(event.EvictedTag)
	} else {
		evicted.AppendNull()
	}

	b.Field(8).(*array.BooleanBuilder).Append(event.ExtraHit)

	r.rows++
	if r.rows >= r.batchSize {
		return r.flush()
	}
	return nil
}

func (r *ArrowRecorder) flush() error {
	if r.rows == 0 {
		return nil
	}

	rec := r.builder.NewRecord()
	defer rec.Release()

	r.rows = 0
	if err := r.writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	return nil
}

// Close writes the last batch and closes the file.
func (r *ArrowRecorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	defer r.builder.Release()

	err := r.flush()
	if closeErr := r.writer.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to close arrow writer: %w", closeErr)
	}
	if closeErr := r.file.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to close arrow file: %w", closeErr)
	}
	return err
}
