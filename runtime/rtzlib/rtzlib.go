// Package rtzlib backs the zlib module in generated programs.
package rtzlib

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Compress deflates data at the default level.
func Compress(data string) string {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write([]byte(data)); err != nil {
		panic(fmt.Sprintf("zlib compress: %v", err))
	}
	if err := w.Close(); err != nil {
		panic(fmt.Sprintf("zlib compress: %v", err))
	}
	return buf.String()
}

// Decompress inflates zlib-compressed data.
func Decompress(data string) string {
	r, err := zlib.NewReader(bytes.NewReader([]byte(data)))
	if err != nil {
		panic(fmt.Sprintf("zlib decompress: %v", err))
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		panic(fmt.Sprintf("zlib decompress: %v", err))
	}
	return string(out)
}
