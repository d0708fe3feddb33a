package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/elmath/internal/ui/theme"
)

const bannerArt = `
 ███████╗██╗         ███╗   ███╗ █████╗ ████████╗██╗  ██╗
 ██╔════╝██║         ████╗ ████║██╔══██╗╚══██╔══╝██║  ██║
 █████╗  ██║         ██╔████╔██║███████║   ██║   ███████║
 ██╔══╝  ██║         ██║╚██╔╝██║██╔══██║   ██║   ██╔══██║
 ███████╗███████╗    ██║ ╚═╝ ██║██║  ██║   ██║   ██║  ██║
 ╚══════╝╚══════╝    ╚═╝     ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝`

const bannerCompact = "e l   M A T H"

// RenderBanner returns the el Math banner styled in the primary color.
// Uses a compact fallback for terminals narrower than 62 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 62 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
