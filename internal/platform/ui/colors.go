// internal/platform/ui/colors.go
package ui

import "github.com/pterm/pterm"

// Paleta de colores "Nocturna" - Inspirada en la caza nocturna del búho:
// ojos de ámbar, plumaje gris y cielo de medianoche

// Colores primarios
var (
	// OwlAmber - Ojos del búho, elementos principales
	OwlAmber = pterm.NewRGB(255, 184, 48)

	// BloodMoon - Luna de sangre, errores críticos
	BloodMoon = pterm.NewRGB(186, 32, 52)

	// EmberDusk - Brasas del crepúsculo, errores graves
	EmberDusk = pterm.NewRGB(140, 20, 28)

	// HarvestGold - Oro de cosecha, warnings y hallazgos destacados
	HarvestGold = pterm.NewRGB(255, 182, 39)

	// FeatherGray - Plumaje gris, texto secundario, elementos pendientes
	FeatherGray = pterm.NewRGB(120, 124, 134)

	// MidnightBlue - Cielo de medianoche, fondos, separadores
	MidnightBlue = pterm.NewRGB(18, 24, 48)

	// MoonSilver - Plata lunar, texto principal
	MoonSilver = pterm.NewRGB(226, 230, 240)

	// TalonOrange - Garras en vuelo, elementos activos
	TalonOrange = pterm.NewRGB(255, 140, 66)

	// DuskViolet - Violeta del anochecer, información secundaria
	DuskViolet = pterm.NewRGB(122, 84, 189)

	// StarlightCyan - Luz de estrellas, acentos fríos
	StarlightCyan = pterm.NewRGB(88, 196, 221)

	// HuntGreen - Presa capturada, operaciones exitosas
	HuntGreen = pterm.NewRGB(61, 178, 112)
)

// Estilos preconfigurados para diferentes contextos
var (
	// StylePrimary - Estilo principal para headers y elementos destacados
	StylePrimary = OwlAmber.ToRGBStyle()

	// StyleSuccess - Estilo para operaciones exitosas
	StyleSuccess = HuntGreen.ToRGBStyle()

	// StyleWarning - Estilo para advertencias
	StyleWarning = HarvestGold.ToRGBStyle()

	// StyleError - Estilo para errores
	StyleError = BloodMoon.ToRGBStyle()

	// StyleCritical - Estilo para errores críticos
	StyleCritical = EmberDusk.ToRGBStyle()

	// StyleSecondary - Estilo para texto secundario
	StyleSecondary = FeatherGray.ToRGBStyle()

	// StyleText - Estilo para texto principal
	StyleText = MoonSilver.ToRGBStyle()

	// StyleActive - Estilo para elementos activos/running
	StyleActive = TalonOrange.ToRGBStyle()

	// StyleInfo - Estilo para información adicional
	StyleInfo = DuskViolet.ToRGBStyle()

	// StyleAccent - Estilo para acentos y highlights
	StyleAccent = StarlightCyan.ToRGBStyle()
)
