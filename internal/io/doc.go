// Package ioutils provides file system utilities used when laying out
// downloads on disk.
//
// # Filename Sanitization
//
// SanitizeFileName strips characters that are invalid in file or folder
// names on common file systems:
//
//	ioutils.SanitizeFileName(`AC/DC: Live?`) // "ACDC Live"
//
// A label that is empty after sanitization means "no folder".
//
// # Directories
//
//	err := ioutils.EnsureDir("/music/flac/Artist")
//	renamed, err := ioutils.RenameIfAbsent(oldDir, newDir)
package ioutils
