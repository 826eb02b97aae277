package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const dirPerm = 0o750

// Path returns the file path for basename in dir under codec.
func Path(dir, basename string, codec Codec) string {
	return filepath.Join(dir, basename+codec.Extension())
}

// Save encodes v into dir/basename+extension. The file is written to a
// temporary name first and renamed, so readers never see a partial file.
func Save(dir, basename string, codec Codec, v any) error {
	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	path := Path(dir, basename, codec)

	tmp, err := os.CreateTemp(dir, "."+basename+"-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}

	err = codec.Encode(tmp, v)
	if err != nil {
		return errors.Join(fmt.Errorf("encode %s: %w", path, err), tmp.Close(), os.Remove(tmp.Name()))
	}

	err = tmp.Close()
	if err != nil {
		return errors.Join(fmt.Errorf("close %s: %w", path, err), os.Remove(tmp.Name()))
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return errors.Join(fmt.Errorf("rename %s: %w", path, err), os.Remove(tmp.Name()))
	}

	return nil
}

// Load decodes dir/basename+extension into v, which must be a pointer.
func Load(dir, basename string, codec Codec, v any) error {
	path := Path(dir, basename, codec)

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	err = codec.Decode(file, v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}

// ErrNotFound is returned by Detect when no codec's file exists.
var ErrNotFound = errors.New("document not found")

// Detect returns the report codec whose file for basename exists in dir.
// Uncompressed files win when both exist.
func Detect(dir, basename string) (Codec, error) {
	for _, codec := range []Codec{ReportCodec(false), ReportCodec(true)} {
		_, err := os.Stat(Path(dir, basename, codec))
		if err == nil {
			return codec, nil
		}

		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", Path(dir, basename, codec), err)
		}
	}

	return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, basename, dir)
}
