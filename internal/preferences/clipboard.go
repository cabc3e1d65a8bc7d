package preferences

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// CommandClipboard writes to the system clipboard through the platform tool
// (pbcopy, xclip, xsel, wl-copy or the Windows API)
type CommandClipboard struct {
	writeAll    func(text string) error
	unsupported bool
}

// NewCommandClipboard creates a clipboard backed by the system clipboard
func NewCommandClipboard() *CommandClipboard {
	return &CommandClipboard{
		writeAll:    clipboard.WriteAll,
		unsupported: clipboard.Unsupported,
	}
}

// WriteText copies text to the clipboard
func (c *CommandClipboard) WriteText(text string) error {
	if c.unsupported {
		return ErrClipboardUnavailable
	}
	if err := c.writeAll(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}
