package styles

// HighContrastTheme favors visibility on low-contrast terminals.
var HighContrastTheme = Theme{
	Name: "high-contrast",
	Tokens: ThemeTokens{
		Background: "#000000",
		Panel:      "#000000",
		Text:       "#FFFFFF",
		TextMuted:  "#D0D0D0",
		Border:     "#FFFFFF",
		Accent:     "#00D7FF",
		Focus:      "#FFFF00",
		Success:    "#00FF00",
		Warning:    "#FFAF00",
		Error:      "#FF5F5F",
		Info:       "#5FD7FF",
		Speaker:    "#FFFF00",
	},
}
