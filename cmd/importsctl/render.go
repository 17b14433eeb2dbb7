package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"holdings-imports-backend/internal/client"
)

const placeholder = "—"

func renderPage(w io.Writer, p *client.Page, page int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCHEME\tINSTRUMENT\tISIN\tREPORT DATE\tQUANTITY\t% NAV\tMARKET VALUE\tRATING\tYTM\tMODIFIED")
	for _, r := range p.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			text(r.SchemeName),
			text(r.InstrumentName),
			text(r.ISIN),
			reportDate(r),
			number(r.Quantity, -1),
			percent(r.PctToNAV),
			number(r.MarketValue, 2),
			text(r.Rating),
			percent(r.YTM),
			day(r.ModifiedTime),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d of %d, %d records\n", page, p.TotalPages, p.Total)
}

func text(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

func number(v *float64, prec int) string {
	if v == nil {
		return placeholder
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

// percent renders a fraction such as 0.0725 as 7.25%.
func percent(v *float64) string {
	if v == nil {
		return placeholder
	}
	return strconv.FormatFloat(*v*100, 'f', 2, 64) + "%"
}

func reportDate(r client.Record) string {
	if r.ReportDateISO != nil {
		return r.ReportDateISO.UTC().Format(time.DateOnly)
	}
	return text(r.ReportDate)
}

func day(t *time.Time) string {
	if t == nil {
		return placeholder
	}
	return t.UTC().Format(time.DateOnly)
}
