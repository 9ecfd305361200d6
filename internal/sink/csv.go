// Package sink writes pipeline results to files for download.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Yotam17/nl2sql/internal/models"
)

// CSVSink writes each result set to a new file under Dir.
type CSVSink struct {
	Dir string
}

func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{Dir: dir}
}

// Save writes rows and returns the file path. The header comes from the first
// row's columns; an empty result still produces an (empty) file.
func (s *CSVSink) Save(rows []models.Row) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	name := "result_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + ".csv"
	path := filepath.Join(s.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if len(rows) > 0 {
		w := csv.NewWriter(f)
		header := rows[0].Keys()
		if err := w.Write(header); err != nil {
			return "", err
		}
		for _, r := range rows {
			record := make([]string, len(header))
			for i, col := range header {
				if v, ok := r.Get(col); ok && v != nil {
					record[i] = fmt.Sprint(v)
				}
			}
			if err := w.Write(record); err != nil {
				return "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}

	log.Info().Str("path", path).Int("rows", len(rows)).Msg("result saved")
	return path, f.Close()
}
