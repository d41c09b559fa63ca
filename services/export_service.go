package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"venting/models"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

const (
	exportFileLayout      = "2006-01-02_1504"
	exportTimestampLayout = "2006-01-02T15:04:05"
)

var (
	ErrExportWrite = errors.New("failed to write chat history")

	exportHeader = []string{"order", "pair", "role", "message", "timestamp"}
)

// TranscriptArchive receives a copy of every export. It is optional.
type TranscriptArchive interface {
	Archive(ctx context.Context, file string, rows []models.ExportRow) error
}

type Exporter struct {
	dir     string
	now     func() time.Time
	archive TranscriptArchive
}

// NewExporter writes into dir. archive may be nil.
func NewExporter(dir string, archive TranscriptArchive) *Exporter {
	return &Exporter{dir: dir, now: time.Now, archive: archive}
}

// ExportFileName is chat_history_<YYYY-MM-DD>_<HHMM>.csv for t. Exports in
// the same minute share a name.
func ExportFileName(t time.Time) string {
	return "chat_history_" + t.Format(exportFileLayout) + ".csv"
}

// BuildExportRows keeps the user and assistant turns in order and numbers
// them. Pairing assumes user/assistant alternation: pair = ceil(order/2).
func BuildExportRows(history []models.Message, at time.Time) []models.ExportRow {
	at = at.Truncate(time.Second)
	rows := make([]models.ExportRow, 0, len(history))
	for _, msg := range history {
		if msg.Role != models.RoleUser && msg.Role != models.RoleAssistant {
			continue
		}
		order := len(rows) + 1
		rows = append(rows, models.ExportRow{
			Order:     order,
			Pair:      (order + 1) / 2,
			Role:      msg.Role,
			Message:   msg.Content,
			Timestamp: at,
		})
	}
	return rows
}

// WriteTranscript encodes rows as CSV with a header. Records end with CRLF;
// line breaks inside a message are written unchanged.
func WriteTranscript(w io.Writer, rows []models.ExportRow) error {
	bw := bufio.NewWriter(w)
	var buf bytes.Buffer
	if err := writeRecord(bw, &buf, exportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Order),
			strconv.Itoa(row.Pair),
			string(row.Role),
			row.Message,
			row.Timestamp.Format(exportTimestampLayout),
		}
		if err := writeRecord(bw, &buf, record); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// writeRecord encodes a single record into buf and swaps its trailing LF for
// CRLF before copying it to w.
func writeRecord(w io.Writer, buf *bytes.Buffer, record []string) error {
	buf.Reset()
	cw := csv.NewWriter(buf)
	if err := cw.Write(record); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if _, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// Export writes the transcript of history to a new CSV file and returns its
// path. An archive failure is logged and does not fail the export.
func (e *Exporter) Export(ctx context.Context, history []models.Message) (string, error) {
	now := e.now()
	rows := BuildExportRows(history, now)
	path := filepath.Join(e.dir, ExportFileName(now))

	if err := writeTranscriptFile(path, rows); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "exporting %s", path), ErrExportWrite)
	}

	if e.archive != nil {
		if err := e.archive.Archive(ctx, path, rows); err != nil {
			log.Warn("Failed to archive chat history", "file", path, "error", err)
		}
	}
	return path, nil
}

func writeTranscriptFile(path string, rows []models.ExportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTranscript(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
