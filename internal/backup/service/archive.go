// Package service encodes backup archives: a zstd-compressed tar holding the
// manifest and the checksummed payload.
package service

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Archive member names.
const (
	ManifestName = "manifest.json"
	PayloadName  = "payload.json"
)

// maxMemberSize bounds how much of a single member is read back.
const maxMemberSize = 64 << 20

// Checksum returns the hex SHA-256 of the payload.
func Checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Encode packs manifest and payload into a tar.zst archive.
func Encode(manifest, payload []byte, modTime time.Time) ([]byte, error) {
	var buf bytes.Buffer
	encoder, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}

	tw := tar.NewWriter(encoder)
	members := []struct {
		name string
		data []byte
	}{
		{ManifestName, manifest},
		{PayloadName, payload},
	}
	for _, m := range members {
		header := &tar.Header{
			Name:     m.name,
			Mode:     0600,
			Size:     int64(len(m.data)),
			ModTime:  modTime,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(header); err != nil {
			_ = encoder.Close()
			return nil, fmt.Errorf("write %s header: %w", m.name, err)
		}
		if _, err := tw.Write(m.data); err != nil {
			_ = encoder.Close()
			return nil, fmt.Errorf("write %s: %w", m.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("close tar: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("close zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode unpacks an archive produced by Encode. Unknown members are ignored;
// missing ones are an error.
func Decode(archive []byte) (manifest, payload []byte, err error) {
	decoder, err := zstd.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer decoder.Close()

	tr := tar.NewReader(decoder)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg || header.Size > maxMemberSize {
			continue
		}

		data, err := io.ReadAll(io.LimitReader(tr, maxMemberSize))
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", header.Name, err)
		}
		switch header.Name {
		case ManifestName:
			manifest = data
		case PayloadName:
			payload = data
		}
	}

	if manifest == nil {
		return nil, nil, fmt.Errorf("archive has no %s", ManifestName)
	}
	if payload == nil {
		return nil, nil, fmt.Errorf("archive has no %s", PayloadName)
	}
	return manifest, payload, nil
}
