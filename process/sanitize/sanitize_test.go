package sanitize

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseTables(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	got := ParseTables(" leads, ,users;drop table x,_tmp1, 9bad ", log)
	if diff := cmp.Diff([]string{"leads", "_tmp1"}, got); diff != "" {
		t.Fatalf("ParseTables mismatch (-want +got):\n%s", diff)
	}
}

func TestTruncateStatement(t *testing.T) {
	assert.Equal(t, `TRUNCATE TABLE "leads", "users" RESTART IDENTITY CASCADE`, TruncateStatement([]string{"leads", "users"}))
}

func TestDefaultTablesAreValid(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Equal(t, DefaultTables, ParseTables(strings.Join(DefaultTables, ","), log))
}
