package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
	"github.com/urfave/cli/v2"
)

var seedColumns = []string{"sku", "name", "category", "current_stock", "unit_price", "velocity", "date", "quantity", "type"}

// seedRow is one CSV line: the product it belongs to and a single movement
type seedRow struct {
	product  domain.Product
	category string
	movement domain.Movement
}

func getColumnIndex(header []string, column string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			return i
		}
	}
	return -1
}

func parseSeedCSV(r io.Reader) ([]seedRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := make(map[string]int, len(seedColumns))
	for _, col := range seedColumns {
		i := getColumnIndex(header, col)
		if i < 0 {
			return nil, fmt.Errorf("missing column %q", col)
		}
		idx[col] = i
	}

	var rows []seedRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		row, err := parseSeedRecord(record, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseSeedRecord(record []string, idx map[string]int) (seedRow, error) {
	field := func(col string) string { return strings.TrimSpace(record[idx[col]]) }

	sku := field("sku")
	if sku == "" {
		return seedRow{}, errors.New("sku is required")
	}

	stock, err := strconv.Atoi(field("current_stock"))
	if err != nil {
		return seedRow{}, fmt.Errorf("invalid current_stock: %w", err)
	}

	var price *float64
	if raw := field("unit_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return seedRow{}, fmt.Errorf("invalid unit_price: %w", err)
		}
		price = &v
	}

	velocity, ok := domain.ParseVelocity(field("velocity"))
	if !ok {
		velocity = domain.VelocityMedium
	}

	date, err := time.Parse("2006-01-02", field("date"))
	if err != nil {
		return seedRow{}, fmt.Errorf("invalid date: %w", err)
	}

	qty, err := strconv.Atoi(field("quantity"))
	if err != nil || qty < 0 {
		return seedRow{}, fmt.Errorf("invalid quantity %q", field("quantity"))
	}

	mtype, ok := domain.ParseMovementType(field("type"))
	if !ok {
		return seedRow{}, fmt.Errorf("unknown movement type %q", field("type"))
	}

	return seedRow{
		product: domain.Product{
			SKU:          sku,
			Name:         field("name"),
			CurrentStock: stock,
			UnitPrice:    price,
			Velocity:     velocity,
		},
		category: field("category"),
		movement: domain.Movement{Date: date, Quantity: qty, Type: mtype},
	}, nil
}

func runSeedMovements(c *cli.Context) error {
	path := c.String("file")
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	rows, err := parseSeedCSV(file)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	repo := repository.NewIngestRepository(dbFrom(c).DB.DB)
	categoryIDs := map[string]int64{}
	productIDs := map[string]int64{}
	movements := make([]domain.Movement, 0, len(rows))

	for _, row := range rows {
		if row.category != "" {
			id, ok := categoryIDs[row.category]
			if !ok {
				if id, err = repo.UpsertCategory(c.Context, row.category); err != nil {
					return err
				}
				categoryIDs[row.category] = id
			}
			row.product.CategoryID = id
		}

		// the last row of a SKU decides its catalogue values
		id, err := repo.UpsertProduct(c.Context, &row.product)
		if err != nil {
			return err
		}
		productIDs[row.product.SKU] = id

		row.movement.ProductID = id
		movements = append(movements, row.movement)
	}

	n, err := repo.InsertMovements(c.Context, movements)
	if err != nil {
		return err
	}

	logger.Log.Info().
		Str("file", path).
		Int("categories", len(categoryIDs)).
		Int("products", len(productIDs)).
		Int("movements", n).
		Msg("Seeded movements")
	return nil
}
