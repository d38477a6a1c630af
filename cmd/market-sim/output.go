// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"

	"github.com/someonegg/gsmatch/experiment"
)

const (
	chartWidth  = 60
	chartHeight = 4
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

func writeJSON(file string, v interface{}) error {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "   ")
	if err := encoder.Encode(v); err != nil {
		return err
	}

	if file == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(file, buf.Bytes(), 0644)
}

func sparklineView(data []float64, width int) string {
	spark := sparkline.New(width, chartHeight)
	spark.PushAll(data)
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

// renderCurves draws one sparkline per agent, sampled to fit width.
func renderCurves(c *experiment.Curves, width int) string {
	step := (c.Horizon + width - 1) / width

	title := fmt.Sprintf("%s %s", c.Scenario, c.Policy)
	if c.Policy == experiment.PolicyETC {
		title += fmt.Sprintf(" explore=%d", c.Explore)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	final := c.Final()
	for p := range c.Regrets {
		b.WriteString(labelStyle.Render(fmt.Sprintf("agent %d  final regret ", p)))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%.2f", final[p])))
		b.WriteString("\n")
		b.WriteString(sparklineView(c.Sample(p, step), width))
		b.WriteString("\n")
	}
	return b.String()
}

// renderGap draws the final regret of every agent against the reward gap.
func renderGap(points []experiment.GapPoint, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("reward gap sweep"))
	b.WriteString("\n")
	if len(points) == 0 {
		return b.String()
	}

	for p := range points[0].Final {
		data := make([]float64, len(points))
		for i, pt := range points {
			data[i] = pt.Final[p]
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("agent %d ", p)))
		for _, pt := range points {
			b.WriteString(valueStyle.Render(fmt.Sprintf("%g:%.2f ", pt.Delta, pt.Final[p])))
		}
		b.WriteString("\n")
		b.WriteString(sparklineView(data, min(width, len(data))))
		b.WriteString("\n")
	}
	return b.String()
}
