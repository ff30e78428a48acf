package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Matrix files hold a row-aligned embedding set: an int32 row count and int32
// column count, little endian, followed by row-major float32 values. Every
// row has the same fixed dimensionality.

// WriteMatrix writes vectors to w in matrix file format.
func WriteMatrix(w io.Writer, vectors [][]float32) error {
	cols := 0
	if len(vectors) > 0 {
		cols = len(vectors[0])
	}

	if err := binary.Write(w, binary.LittleEndian, int32(len(vectors))); err != nil {
		return fmt.Errorf("failed to write row count: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(cols)); err != nil {
		return fmt.Errorf("failed to write column count: %w", err)
	}

	for i, row := range vectors {
		if len(row) != cols {
			return fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return nil
}

// ReadMatrix reads a matrix file back into per-row float32 slices.
func ReadMatrix(r io.Reader) ([][]float32, error) {
	var rows, cols int32
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, fmt.Errorf("failed to read row count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return nil, fmt.Errorf("failed to read column count: %w", err)
	}
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("invalid matrix header: %dx%d", rows, cols)
	}

	vectors := make([][]float32, rows)
	for i := range vectors {
		row := make([]float32, cols)
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", i, err)
		}
		vectors[i] = row
	}
	return vectors, nil
}

// SaveMatrixFile writes vectors to path in matrix file format.
func SaveMatrixFile(path string, vectors [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	if err := WriteMatrix(w, vectors); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadMatrixFile reads a matrix file from path.
func LoadMatrixFile(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadMatrix(bufio.NewReader(f))
}
