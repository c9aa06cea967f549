package util

import (
	"os/exec"
	"runtime"

	"github.com/charmbracelet/x/ansi"
)

// MakeHyperlink wraps displayText in an OSC 8 hyperlink to url. Terminals
// without OSC 8 support show displayText only.
func MakeHyperlink(url, displayText string) string {
	return ansi.SetHyperlink(url) + displayText + ansi.ResetHyperlink()
}

// TruncateText shortens s to maxLen display cells, ending in "…" when cut.
// Escape sequences do not count towards the width.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	return ansi.Truncate(s, maxLen, "…")
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
