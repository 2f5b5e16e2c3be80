// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"

	"github.com/virtualmission/vlm/internal/util"
	"github.com/virtualmission/vlm/pkg/core"
)

// exportFileName builds "<mission>_<YYYYMMDD_HHMMSS>.kml[.gz]".
func exportFileName(c *core.Conversion, compress bool) string {
	name := fmt.Sprintf("%s_%s.kml", util.SafeFileName(c.MissionName), c.CreatedAt.Format("20060102_150405"))
	if compress {
		name += ".gz"
	}
	return name
}

// exportKML writes the conversion's KML document to the output directory.
func (b *Backend) exportKML(c *core.Conversion) (string, error) {
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(c, b.cfg.CompressOutput))

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzip(outputPath, c.KML); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	if err := os.WriteFile(outputPath, c.KML, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return outputPath, nil
}

func writeGzip(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if _, err := gzWriter.Write(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish file: %w", err)
	}
	return nil
}
