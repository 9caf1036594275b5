package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erplens/internal/config"
	"erplens/internal/dataset"
	"erplens/internal/services"
	"erplens/pkg/contracts/domain"
)

func TestDomainForFile(t *testing.T) {
	tests := []struct {
		path string
		want domain.DataType
	}{
		{"financial_q1.csv", domain.Financial},
		{"/data/2024 sales export.xlsx", domain.Sales},
		{"INVENTORY-snapshot.csv", domain.Inventory},
		{"notes.csv", domain.Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, domainForFile(tt.path), tt.path)
	}
}

func TestAnalyzeSingleFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "financial.csv")
	csvData := "period,revenue,cogs,operating_expenses\n" +
		"2024-01,100000,60000,20000\n" +
		"2024-02,110000,64000,21000\n"
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	loader := dataset.NewLoader(cfg.Loader.MaxFileSizeMB, cfg.Loader.MaxRows)
	service := services.NewAnalysisService(cfg.Analysis, nil, logger)

	report, err := analyzeSingle(context.Background(), service, loader, path, "")
	require.NoError(t, err)
	assert.Equal(t, domain.Financial, report.DataType)
	assert.Equal(t, "financial.csv", report.DataSource)

	_, err = analyzeSingle(context.Background(), service, loader, path, "weather")
	assert.Error(t, err)
}
