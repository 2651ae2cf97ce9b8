package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/cvchat/internal/models"
)

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func printSummary(summary models.CVSummary) {
	color.Cyan("\nCV summary")
	fmt.Printf("  CVs:    %d\n", summary.TotalCVs)
	fmt.Printf("  Chunks: %d\n", summary.TotalChunks)
	if len(summary.CVFiles) > 0 {
		fmt.Printf("  Files:  %s\n", strings.Join(summary.CVFiles, ", "))
	}
}

func printSources(sources []models.SearchResult) {
	if len(sources) == 0 {
		return
	}
	color.New(color.Faint).Println("\nSources:")
	for i, src := range sources {
		color.New(color.Faint).Printf("  %d. %s #%d (score %.3f)\n",
			i+1, src.Metadata.Source, src.Metadata.ChunkID, src.Score)
	}
}
