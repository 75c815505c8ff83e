package debugger

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/daedaleanai/vbt/util"
)

// ErrNoBitstream is returned when a hardware description does not embed a bitstream.
var ErrNoBitstream = errors.New("no bitstream in hardware description")

const bitstreamExt = ".bit"

// ExtractBitstream copies the bitstream embedded in the XSA archive `xsa` into `dir`
// and returns the path of the copy. If the archive holds several bitstreams, the
// first by name is used.
func ExtractBitstream(xsa, dir string) (string, error) {
	archive, err := zip.OpenReader(xsa)
	if err != nil {
		return "", fmt.Errorf("failed to open hardware description '%s': %w", xsa, err)
	}
	defer archive.Close()

	bitstreams := []*zip.File{}
	for _, file := range archive.File {
		if strings.EqualFold(path.Ext(file.Name), bitstreamExt) && !file.FileInfo().IsDir() {
			bitstreams = append(bitstreams, file)
		}
	}
	if len(bitstreams) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoBitstream, xsa)
	}
	sort.Slice(bitstreams, func(i, j int) bool { return bitstreams[i].Name < bitstreams[j].Name })
	bitstream := bitstreams[0]

	if err := util.EnsureDir(dir); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, path.Base(bitstream.Name))
	if err := copyZipFile(bitstream, dest); err != nil {
		return "", fmt.Errorf("failed to extract '%s' from '%s': %w", bitstream.Name, xsa, err)
	}
	return dest, nil
}

func copyZipFile(file *zip.File, dest string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, util.FileMode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
