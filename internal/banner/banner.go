package banner

import (
	"crunch/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

const ascii = `
   ______                      __  
  / ____/______  ______  _____/ /_ 
 / /   / ___/ / / / __ \/ ___/ __ \
/ /___/ /  / /_/ / / / / /__/ / / /
\____/_/   \__,_/_/ /_/\___/_/ /_/ `

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	return "\n" + style.Render(ascii) + "\n"
}
