package styles

// DefaultTheme is a dim stage palette.
var DefaultTheme = Theme{
	Name: "default",
	Tokens: ThemeTokens{
		Background: "#0E0B12",
		Panel:      "#17131D",
		Text:       "#ECE6F0",
		TextMuted:  "#948AA0",
		Border:     "#2E2638",
		Accent:     "#C792EA",
		Focus:      "#F0C674",
		Success:    "#8BD49C",
		Warning:    "#E5B567",
		Error:      "#F07178",
		Info:       "#82AAFF",
		Speaker:    "#F0C674",
	},
}
