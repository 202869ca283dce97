package cmd

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

func printBanner() {
	figure.NewColorFigure("SCAN-ANALYSIS", "doom", "cyan", true).Print()

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	_, _ = cyan.Println("════════════════════════════════════════════════")
	_, _ = green.Println("    Redirect attribution | connectivity clusters")
	_, _ = cyan.Println("════════════════════════════════════════════════")
}
