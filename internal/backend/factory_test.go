package backend

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"insights/internal/config"
	"insights/internal/core"
	"insights/internal/loader"
)

func testTable(t *testing.T) *core.Table {
	t.Helper()
	csv := "report_type,created_date_time,modified_by,workspace_name,domain_id,is_on_dedicated_capacity\n" +
		"PowerBI,2023-01-15,alice,Sales,d1,True\n" +
		"Excel,2023-02-01,bob,Ops,d2,False\n"
	tbl, _, err := loader.Read(strings.NewReader(csv), "test", loader.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return tbl
}

func TestFactoryCreatesEveryBackend(t *testing.T) {
	f := NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
	tbl := testTable(t)

	for _, typ := range GetBackendTypes() {
		t.Run(typ.String(), func(t *testing.T) {
			res, err := f.CreateBackend(context.Background(), Config{Type: typ}, tbl)
			if err != nil {
				t.Fatalf("create %s: %v", typ, err)
			}
			if res.Cleanup != nil {
				defer res.Cleanup()
			}

			d, err := res.Backend.Distribution(context.Background(), core.ColumnReportType, core.MissingExclude)
			if err != nil {
				t.Fatalf("distribution: %v", err)
			}
			if d.Get("PowerBI") != 1 || d.Get("Excel") != 1 {
				t.Fatalf("unexpected counts: %+v", d.Counts)
			}
		})
	}
}

func TestFactoryRejectsInvalidInput(t *testing.T) {
	f := NewFactory(nil)

	if _, err := f.CreateBackend(context.Background(), Config{Type: "sheets"}, testTable(t)); err == nil {
		t.Fatal("expected error for unknown backend type")
	}
	if _, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend}, nil); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite"})
	if err != nil || cfg.Type != SQLiteBackend {
		t.Fatalf("unexpected config: %+v err=%v", cfg, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for invalid backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if got := GetBackendTypeStrings(); len(got) != 2 || got[0] != "memory" {
		t.Fatalf("unexpected backend types: %v", got)
	}
}
