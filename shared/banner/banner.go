// Package banner renders the CLI startup banner.
package banner

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

const title = "aws-ic-report - Identity Center access report"

// DrawBannerTitle prints the startup banner, sized to the terminal when one
// is attached.
func DrawBannerTitle() {
	width := len(title)
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}
	fmt.Println(title)
	fmt.Println(strings.Repeat("─", width))
}
