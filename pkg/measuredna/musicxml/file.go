package musicxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/score"
)

var ErrNoRootFile = errors.New("compressed musicxml has no root file")

const containerPath = "META-INF/container.xml"

type xmlContainer struct {
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// ParseFile loads a .musicxml/.xml file or a compressed .mxl archive.
func ParseFile(filePath string) (*score.Score, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}
	return ParseBytes(filepath.Base(filePath), data)
}

// ParseBytes parses data, treating it as an .mxl archive when the name says
// so or the content starts with a zip header.
func ParseBytes(name string, data []byte) (*score.Score, error) {
	if IsCompressed(name, data) {
		return parseMXL(data)
	}
	return Parse(bytes.NewReader(data))
}

// IsCompressed reports whether name/data look like an .mxl archive.
func IsCompressed(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), ".mxl") {
		return true
	}
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func parseMXL(data []byte) (*score.Score, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening mxl archive: %w", err)
	}

	root, err := rootFile(zr)
	if err != nil {
		return nil, err
	}

	f, err := zr.Open(root)
	if err != nil {
		return nil, fmt.Errorf("opening %s in archive: %w", root, err)
	}
	defer f.Close()

	return Parse(f)
}

// rootFile finds the score inside the archive: the first rootfile listed in
// the container, or else the first .musicxml/.xml entry outside META-INF.
func rootFile(zr *zip.Reader) (string, error) {
	if f, err := zr.Open(containerPath); err == nil {
		defer f.Close()
		var c xmlContainer
		if err := xml.NewDecoder(io.LimitReader(f, 1<<20)).Decode(&c); err != nil {
			return "", fmt.Errorf("decoding %s: %w", containerPath, err)
		}
		for _, rf := range c.RootFiles {
			if rf.FullPath != "" {
				return rf.FullPath, nil
			}
		}
	}

	for _, entry := range zr.File {
		if strings.HasPrefix(entry.Name, "META-INF/") {
			continue
		}
		switch strings.ToLower(path.Ext(entry.Name)) {
		case ".musicxml", ".xml":
			return entry.Name, nil
		}
	}
	return "", ErrNoRootFile
}
