package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Passthrough copies every kind with CopyToOutput from root/DownloadDir to
// outputDir/MarkdownPath, mirroring the site's public asset layout. Kinds
// whose download directory does not exist yet are skipped.
func Passthrough(cfg Config, root, outputDir string) ([]string, error) {
	var copied []string
	seen := make(map[string]bool)
	for _, kind := range Kinds {
		kc := cfg.For(kind)
		if !kc.CopyToOutput || kc.DownloadDir == "" {
			continue
		}
		src := filepath.Join(root, kc.DownloadDir)
		dst := filepath.Join(outputDir, filepath.FromSlash(strings.TrimPrefix(kc.MarkdownPath, "/")))
		if seen[src+"\x00"+dst] {
			continue
		}
		seen[src+"\x00"+dst] = true

		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := CopyDir(src, dst); err != nil {
			return copied, fmt.Errorf("passthrough %s: %w", kind, err)
		}
		copied = append(copied, dst)
	}
	return copied, nil
}

// CopyDir recursively copies a directory tree.
func CopyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = dstFile.Close() }()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode())
}
