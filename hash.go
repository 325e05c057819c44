package main

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
)

func hashFile(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// hashSources digests the Go files under each directory, keyed by relative
// path so that renames change the result. Tests do not affect the build and
// are skipped.
func hashSources(dirs ...string) (string, error) {
	hash := sha256.New()
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(path) != ".go" || isTestFile(path) {
				return nil
			}
			fileHash, err := hashFile(path)
			if err != nil {
				return err
			}
			hash.Write([]byte(filepath.ToSlash(path)))
			hash.Write([]byte(fileHash))
			return nil
		})
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func isTestFile(path string) bool {
	matched, _ := filepath.Match("*_test.go", filepath.Base(path))
	return matched
}
