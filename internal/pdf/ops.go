package pdf

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func validate(path string) error {
	if err := api.ValidateFile(path, newConfiguration()); err != nil {
		return fmt.Errorf("%w: %v", conversion.ErrInvalidInput, err)
	}
	return nil
}

func merge(inputs []string, output string) error {
	if err := api.MergeCreateFile(inputs, output, false, newConfiguration()); err != nil {
		return fmt.Errorf("merge pdfs: %w", err)
	}
	return nil
}

// extractPages writes the selected pages of the input into a single output
// document.
func extractPages(input, output string, pages []string) error {
	if err := api.TrimFile(input, output, pages, newConfiguration()); err != nil {
		return fmt.Errorf("%w: %v", conversion.ErrInvalidParameter, err)
	}
	return nil
}

// splitToZip splits the input into one document per page and bundles the
// pieces into a zip archive at output.
func splitToZip(input, workDir, output string) error {
	if err := api.SplitFile(input, workDir, 1, newConfiguration()); err != nil {
		return fmt.Errorf("split pdf: %w", err)
	}

	parts, err := filepath.Glob(filepath.Join(workDir, "*.pdf"))
	if err != nil {
		return fmt.Errorf("collect split pages: %w", err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("%w: document produced no pages", conversion.ErrInvalidInput)
	}
	sort.Strings(parts)

	return writeZip(output, parts)
}

func writeZip(output string, files []string) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, path := range files {
		src, err := os.Open(path)
		if err != nil {
			zw.Close()
			return fmt.Errorf("open page %s: %w", filepath.Base(path), err)
		}
		dst, err := zw.Create(filepath.Base(path))
		if err == nil {
			_, err = io.Copy(dst, src)
		}
		src.Close()
		if err != nil {
			zw.Close()
			return fmt.Errorf("archive page %s: %w", filepath.Base(path), err)
		}
	}
	return zw.Close()
}

// compress optimizes the document. Optimization can grow a document that
// is already tight; when it does, the original bytes are kept.
func compress(input, output string) error {
	if err := api.OptimizeFile(input, output, newConfiguration()); err != nil {
		return fmt.Errorf("optimize pdf: %w", err)
	}

	in, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	out, err := os.Stat(output)
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}
	if out.Size() >= in.Size() {
		return copyFile(input, output)
	}
	return nil
}

func encrypt(input, output, password string) error {
	conf := newConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	if err := api.EncryptFile(input, output, conf); err != nil {
		return fmt.Errorf("encrypt pdf: %w", err)
	}
	return nil
}

func decrypt(input, output, password string) error {
	conf := newConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	if err := api.DecryptFile(input, output, conf); err != nil {
		return fmt.Errorf("%w: wrong password or undecryptable document", conversion.ErrInvalidParameter)
	}
	return nil
}

func watermark(input, output, text string) error {
	desc := "font:Helvetica, points:48, op:0.4, rot:45, fillc:#808080"
	if err := api.AddTextWatermarksFile(input, output, nil, true, text, desc, newConfiguration()); err != nil {
		return fmt.Errorf("watermark pdf: %w", err)
	}
	return nil
}

func rotate(input, output string, degrees int) error {
	if err := api.RotateFile(input, output, degrees, nil, newConfiguration()); err != nil {
		return fmt.Errorf("rotate pdf: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

// parsePages validates a comma-separated page selection like "1,3,5-7".
func parsePages(raw string) ([]string, error) {
	var pages []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		for _, r := range part {
			if (r < '0' || r > '9') && r != '-' {
				return nil, fmt.Errorf("%w: pages %q", conversion.ErrInvalidParameter, raw)
			}
		}
		pages = append(pages, part)
	}
	return pages, nil
}
