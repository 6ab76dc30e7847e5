package object

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
)

// HashUserKey returns a filesystem-safe identifier for a user ID.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// OriginalKey is the storage key for a document's uploaded bytes. It is
// derived only from its inputs so the key never needs to be stored.
func OriginalKey(userID, documentID, fileName string) (string, error) {
	if strings.TrimSpace(documentID) == "" {
		return "", errors.New("document id is required")
	}
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return "", err
	}
	return path.Join(HashUserKey(userID), documentID, name), nil
}
