package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mikey/authenticity-guardian/internal/core"
	"go.uber.org/zap"
)

// Required column names, in the order they are rendered
const (
	ColumnID          = "Product_ID"
	ColumnBrand       = "Brand"
	ColumnDescription = "Description"
	ColumnPrice       = "Price"
)

var requiredColumns = []string{ColumnID, ColumnBrand, ColumnDescription, ColumnPrice}

// CSVSource loads the reference catalog from a CSV file
type CSVSource struct {
	path   string
	logger *zap.Logger
}

// NewCSVSource creates a catalog source reading path
func NewCSVSource(path string, logger *zap.Logger) *CSVSource {
	return &CSVSource{
		path:   path,
		logger: logger,
	}
}

// Load reads the whole catalog. Problems with the file are reported as
// *core.ConfigError naming the offending input.
func (s *CSVSource) Load(ctx context.Context) ([]core.CatalogItem, error) {
	if strings.TrimSpace(s.path) == "" {
		return nil, &core.ConfigError{Input: "catalog.path", Err: errors.New("no catalog file configured")}
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, &core.ConfigError{Input: "catalog.path", Err: fmt.Errorf("cannot open %s: %w", s.path, err)}
	}
	defer f.Close()

	items, err := Parse(f)
	if err != nil {
		return nil, &core.ConfigError{Input: s.path, Err: err}
	}

	s.logger.Debug("Read catalog file", zap.String("path", s.path), zap.Int("items", len(items)))
	return items, nil
}

// Parse reads catalog rows from r. The header must contain exactly the
// required columns, in any order.
func Parse(r io.Reader) ([]core.CatalogItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("catalog file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var items []core.CatalogItem
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog row: %w", err)
		}
		line, _ := reader.FieldPos(0)

		priceText := strings.TrimSpace(record[index[ColumnPrice]])
		price, err := strconv.Atoi(priceText)
		if err != nil {
			return nil, fmt.Errorf("line %d: column %s must be an integer, got %q", line, ColumnPrice, priceText)
		}

		id := strings.TrimSpace(record[index[ColumnID]])
		if id == "" {
			return nil, fmt.Errorf("line %d: column %s must not be empty", line, ColumnID)
		}

		items = append(items, core.CatalogItem{
			ID:          id,
			Brand:       strings.TrimSpace(record[index[ColumnBrand]]),
			Description: strings.TrimSpace(record[index[ColumnDescription]]),
			Price:       price,
		})
	}
	return items, nil
}

// columnIndex maps required column names to their position in header
func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	var unexpected []string
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if !isRequired(name) {
			unexpected = append(unexpected, name)
			continue
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %s", name)
		}
		index[name] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	if len(unexpected) > 0 {
		return nil, fmt.Errorf("unexpected columns: %s (expected exactly %s)",
			strings.Join(unexpected, ", "), strings.Join(requiredColumns, ", "))
	}
	return index, nil
}

func isRequired(name string) bool {
	for _, c := range requiredColumns {
		if c == name {
			return true
		}
	}
	return false
}
