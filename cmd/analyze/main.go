package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"erplens/internal/config"
	"erplens/internal/dataset"
	"erplens/internal/infrastructure"
	"erplens/internal/services"
	"erplens/pkg/contracts/domain"
)

func main() {
	configPath := flag.String("config", "", "optional yaml config file")
	declaredType := flag.String("type", "", "declared data type for a single file (financial, manufacturing, inventory, sales, purchase); auto-detected when empty")
	out := flag.String("out", "", "output file path (defaults to stdout)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: erplens [flags] <file.csv|file.xlsx> [more files...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	loader := dataset.NewLoader(cfg.Loader.MaxFileSizeMB, cfg.Loader.MaxRows)
	service := services.NewAnalysisService(cfg.Analysis, nil, logger)
	ctx := context.Background()

	var report any
	if flag.NArg() == 1 {
		report, err = analyzeSingle(ctx, service, loader, flag.Arg(0), *declaredType)
	} else {
		if *declaredType != "" {
			logger.Warn("-type is ignored when analyzing multiple files")
		}
		report, err = analyzeMulti(ctx, service, loader, logger, flag.Args())
	}
	if err != nil {
		logger.Error("analysis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := writeReport(report, *out); err != nil {
		logger.Error("failed to write report", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func analyzeSingle(ctx context.Context, service *services.AnalysisService, loader *dataset.Loader, path, declaredType string) (domain.SingleReport, error) {
	declared := domain.Unknown
	if declaredType != "" {
		dt, err := domain.ParseDataType(declaredType)
		if err != nil || dt == domain.Unknown {
			return domain.SingleReport{}, fmt.Errorf("unknown data type %q", declaredType)
		}
		declared = dt
	}

	d, err := loader.Load(path)
	if err != nil {
		return domain.SingleReport{}, err
	}
	return service.Analyze(ctx, d, filepath.Base(path), declared)
}

func analyzeMulti(ctx context.Context, service *services.AnalysisService, loader *dataset.Loader, logger *slog.Logger, paths []string) (domain.Report, error) {
	files := make(map[string]*dataset.Dataset, len(paths))
	for _, path := range paths {
		dt := domainForFile(path)
		if dt == domain.Unknown {
			logger.Warn("file matches no domain, skipping", slog.String("path", path))
			continue
		}
		d, err := loader.Load(path)
		if err != nil {
			return domain.Report{}, fmt.Errorf("loading %s: %w", path, err)
		}
		files[dt.String()] = d
	}
	return service.AnalyzeMulti(ctx, files), nil
}

// domainForFile infers the target domain from the filename stem, e.g.
// "sales_2024.csv" analyzes as sales data.
func domainForFile(path string) domain.DataType {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	for _, dt := range domain.AllDataTypes {
		if strings.Contains(stem, dt.String()) {
			return dt
		}
	}
	return domain.Unknown
}

func writeReport(report any, out string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(out, data, 0644)
}
