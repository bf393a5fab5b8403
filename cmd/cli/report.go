//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/himanishpuri/MeasureDNA/pkg/logger"
	"github.com/himanishpuri/MeasureDNA/pkg/measuredna"
	"github.com/himanishpuri/MeasureDNA/pkg/models"
)

var (
	colorAccent = lipgloss.Color("#E74C3C")
	colorMuted  = lipgloss.Color("#7F8C8D")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	groupStyle = lipgloss.NewStyle().Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

// isScoreID reports whether arg names a stored score rather than a file.
func isScoreID(arg string) bool {
	if _, err := os.Stat(arg); err == nil {
		return false
	}
	_, err := uuid.Parse(arg)
	return err == nil
}

func handleAnalyze(args []string) error {
	log := logger.GetLogger()

	positional, flagArgs := splitArgs(args)
	analyzeCmd := flag.NewFlagSet("analyze", flag.ExitOnError)
	showFingerprints := analyzeCmd.Bool("fingerprints", false, "Print every measure's fingerprint")
	analyzeCmd.Parse(flagArgs)

	if len(positional) != 1 {
		fmt.Println("Usage: measureDNA analyze <score_id|score_file> [--fingerprints]")
		return errUsage
	}
	target := positional[0]

	svc, err := createService()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Println("🔍 Analyzing score...")
	var analysis *models.Analysis
	if isScoreID(target) {
		analysis, err = svc.AnalyzeScore(ctx, target)
	} else {
		analysis, err = svc.AnalyzeFile(ctx, target)
	}
	if err != nil {
		fmt.Printf("\n❌ Failed to analyze score: %v\n", err)
		log.Errorf("Analyze failed: %v", err)
		return err
	}

	fmt.Println(renderAnalysis(analysis, *showFingerprints))
	return nil
}

// renderAnalysis formats an analysis for the terminal.
func renderAnalysis(a *models.Analysis, withFingerprints bool) string {
	var b strings.Builder

	title := a.Title
	if title == "" {
		title = "Untitled"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d measures, %d notes, %d distinct measures",
		a.MeasureCount, a.NoteCount, a.GroupCount)))
	b.WriteString("\n\n")

	if len(a.Repeated) == 0 {
		b.WriteString("No repeated measures.\n")
	} else {
		var lines []string
		for i, g := range a.Repeated {
			lines = append(lines, fmt.Sprintf("%s  %s",
				groupStyle.Render(fmt.Sprintf("Group %d", i+1)), joinMeasures(g.Measures)))
		}
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	if len(a.Malformed) > 0 {
		b.WriteString(fmt.Sprintf("⚠️  Unreadable measures: %s\n", joinMeasures(a.Malformed)))
	}

	if withFingerprints && len(a.Fingerprints) > 0 {
		measures := make([]int, 0, len(a.Fingerprints))
		for m := range a.Fingerprints {
			measures = append(measures, m)
		}
		sort.Ints(measures)
		b.WriteString("\n")
		for _, m := range measures {
			b.WriteString(fmt.Sprintf("%4d  %s\n", m, mutedStyle.Render(a.Fingerprints[m])))
		}
	}
	return b.String()
}

func joinMeasures(measures []int) string {
	parts := make([]string, len(measures))
	for i, m := range measures {
		parts[i] = fmt.Sprintf("%d", m)
	}
	return strings.Join(parts, ", ")
}

// printBatches is the paint sink for the terminal.
func printBatches(batches []measuredna.PaintBatch) error {
	for _, b := range batches {
		fmt.Printf("   🎨 %s -> measures %s (%d notes)\n", b.Color, joinMeasures(b.Measures), len(b.Elements))
	}
	return nil
}
