package banner

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

func Print() {
	fig := figure.NewColorFigure("QRSentry", "doom", "cyan", true)
	fig.Print()

	gray := color.New(color.FgHiBlack)
	_, _ = gray.Println("scan a code, trust it later")
}
