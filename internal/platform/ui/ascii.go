// internal/platform/ui/ascii.go
package ui

// ASCII art y banners temáticos para Noctua
// Inspirado en el búho de Minerva que caza de noche

// NoctuaBannerCompact - Banner principal para terminales anchas
const NoctuaBannerCompact = `
███╗   ██╗ ██████╗  ██████╗████████╗██╗   ██╗ █████╗
████╗  ██║██╔═══██╗██╔════╝╚══██╔══╝██║   ██║██╔══██╗
██╔██╗ ██║██║   ██║██║        ██║   ██║   ██║███████║
██║╚██╗██║██║   ██║██║        ██║   ██║   ██║██╔══██║
██║ ╚████║╚██████╔╝╚██████╗   ██║   ╚██████╔╝██║  ██║
╚═╝  ╚═══╝ ╚═════╝  ╚═════╝   ╚═╝    ╚═════╝ ╚═╝  ╚═╝

            OSINT Automation · Eyes in the Dark
`

// NoctuaBannerMinimal - Banner minimalista para terminales pequeñas
const NoctuaBannerMinimal = `
╔═══════════════════════════════════════╗
║                                       ║
║    NOCTUA                        🦉   ║
║    OSINT Automation Engine            ║
║    ═══════════════════════            ║
║    Eyes in the Dark                   ║
║                                       ║
╚═══════════════════════════════════════╝
`

// GetBanner retorna el banner apropiado según el ancho del terminal
func GetBanner(terminalWidth int) string {
	if terminalWidth < 80 {
		return NoctuaBannerMinimal
	}
	return NoctuaBannerCompact
}
