package history

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// exportBatchRows bounds the rows held in one record batch.
const exportBatchRows = 4096

// ExportSchema is the column layout written by Export.
var ExportSchema = arrow.NewSchema([]arrow.Field{
	{Name: "session_id", Type: arrow.BinaryTypes.String},
	{Name: "role", Type: arrow.BinaryTypes.String},
	{Name: "content", Type: arrow.BinaryTypes.String},
	{Name: "created_at", Type: arrow.FixedWidthTypes.Timestamp_ms},
}, nil)

// Export writes every message as an Arrow IPC stream, ordered by session
// creation and then by message order.
func (s *SQLiteStore) Export(ctx context.Context, w io.Writer) error {
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.session_id, m.role, m.content, m.created_at
		FROM messages m
		JOIN sessions s ON s.id = m.session_id
		ORDER BY s.created_at ASC, s.rowid ASC, m.created_at ASC, m.id ASC`)
	if err != nil {
		return fmt.Errorf("history: query messages: %w", err)
	}
	defer rows.Close()

	mem := memory.NewGoAllocator()
	b := array.NewRecordBuilder(mem, ExportSchema)
	defer b.Release()
	iw := ipc.NewWriter(w, ipc.WithSchema(ExportSchema), ipc.WithAllocator(mem))

	sid := b.Field(0).(*array.StringBuilder)
	role := b.Field(1).(*array.StringBuilder)
	content := b.Field(2).(*array.StringBuilder)
	created := b.Field(3).(*array.TimestampBuilder)

	flush := func() error {
		rec := b.NewRecord()
		defer rec.Release()
		if rec.NumRows() == 0 {
			return nil
		}
		return iw.Write(rec)
	}

	n := 0
	for rows.Next() {
		var (
			s, r, c string
			ts      int64
		)
		if err := rows.Scan(&s, &r, &c, &ts); err != nil {
			iw.Close()
			return fmt.Errorf("history: scan message: %w", err)
		}
		sid.Append(s)
		role.Append(r)
		content.Append(c)
		created.Append(arrow.Timestamp(ts))
		if n++; n%exportBatchRows == 0 {
			if err := flush(); err != nil {
				iw.Close()
				return fmt.Errorf("history: write batch: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		iw.Close()
		return fmt.Errorf("history: iterate messages: %w", err)
	}
	if err := flush(); err != nil {
		iw.Close()
		return fmt.Errorf("history: write batch: %w", err)
	}
	return iw.Close()
}
