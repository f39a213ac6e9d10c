// Package clipboard copies generated text to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// ClipboardError represents an error when no clipboard utility is available
type ClipboardError struct {
	OS      string
	Message string
}

func (e *ClipboardError) Error() string {
	return e.Message
}

// NewClipboardError creates a new ClipboardError with installation instructions
func NewClipboardError() *ClipboardError {
	return &ClipboardError{
		OS:      runtime.GOOS,
		Message: "no clipboard utility found. " + GetInstallInstructions(),
	}
}

// backend is swapped in tests
var (
	writeAll    = clipboard.WriteAll
	unsupported = func() bool { return clipboard.Unsupported }
)

// Copy copies text to the system clipboard
func Copy(text string) error {
	if unsupported() {
		return NewClipboardError()
	}
	return writeAll(text)
}

// CopyWithFallback copies text and returns a status line for the UI
func CopyWithFallback(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("nothing to copy")
	}
	if err := Copy(text); err != nil {
		var clipErr *ClipboardError
		if errors.As(err, &clipErr) {
			return "", err
		}
		return "", fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return "Copied to clipboard!", nil
}

// IsClipboardAvailable reports whether a clipboard backend was found
func IsClipboardAvailable() bool {
	return !unsupported()
}

// GetInstallInstructions returns installation instructions for clipboard utilities
func GetInstallInstructions() string {
	switch runtime.GOOS {
	case "linux":
		return "Install a clipboard utility:\n" +
			"  • Ubuntu/Debian: sudo apt install xclip\n" +
			"  • Fedora/RHEL: sudo dnf install xclip\n" +
			"  • Arch: sudo pacman -S xclip\n" +
			"  • For Wayland: install wl-clipboard"
	case "darwin":
		return "pbcopy should be available by default on macOS"
	case "windows":
		return "clip should be available by default on Windows"
	default:
		return fmt.Sprintf("Clipboard not supported on %s", runtime.GOOS)
	}
}
