package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"nhanes/internal/core/fixedwidth"
	"nhanes/internal/core/table"
	"nhanes/internal/core/xport"

	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var head int
	cmd := &cobra.Command{
		Use:   "inspect <file.xpt>",
		Short: "Print the layout of one transport file",
		Long: `Decodes the header and body of one SAS transport file and prints its columns,
the row count it declared, the rows actually decoded and any truncation warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return inspectXPT(cmd.OutOrStdout(), f, head)
		},
	}
	cmd.Flags().IntVar(&head, "head", 0, "also print the first n rows")
	return cmd
}

func inspectXPT(out io.Writer, r io.Reader, head int) error {
	d, err := xport.NewDecoder(r)
	if err != nil {
		return err
	}
	t := table.New(d.Dataset(), d.Schema())
	vals := make([]table.Value, len(d.Columns()))
	for {
		if err := d.Scan(vals); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		t.Append(vals)
	}
	rows, n := d.Stats()

	fmt.Fprintf(out, "dataset  %s\n", d.Dataset())
	if d.Label() != "" {
		fmt.Fprintf(out, "label    %s\n", d.Label())
	}
	declared := "none"
	if d.Declared() >= 0 {
		declared = strconv.Itoa(d.Declared())
	}
	fmt.Fprintf(out, "rows     %d (declared %s, row width %d, %d bytes)\n", rows, declared, d.RowWidth(), n)
	for _, w := range d.Warnings() {
		fmt.Fprintf(out, "warning  %s\n", w.Error())
	}
	fmt.Fprintln(out)
	if err := printColumns(out, d.Columns()); err != nil {
		return err
	}
	return printHead(out, t, head)
}

func newMortalityCmd() *cobra.Command {
	var head int
	cmd := &cobra.Command{
		Use:   "mortality <file.dat>",
		Short: "Decode one public-use mortality linkage file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			l := fixedwidth.MortalityLayout()
			t, err := fixedwidth.Decode(f, l)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rows     %d (row width %d)\n\n", t.Len(), l.RowWidth)
			if err := printColumns(out, t.Schema.Columns); err != nil {
				return err
			}
			return printHead(out, t, head)
		},
	}
	cmd.Flags().IntVar(&head, "head", 0, "also print the first n rows")
	return cmd
}

func printColumns(out io.Writer, cols []table.Column) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tWIDTH\tOFFSET\tLABEL")
	for _, c := range cols {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", c.Name, c.Kind, c.Width, c.Offset, c.Label)
	}
	return tw.Flush()
}

func printHead(out io.Writer, t *table.Table, n int) error {
	if n <= 0 || t.Len() == 0 {
		return nil
	}
	n = min(n, t.Len())
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(out)
	for i, c := range t.Schema.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c.Name)
	}
	fmt.Fprintln(tw)
	for row := range n {
		for col := range t.Schema.Columns {
			if col > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell(t.Value(row, col)))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func cell(v table.Value) string {
	switch v.Kind {
	case table.Number:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case table.Text:
		return v.Str
	default:
		return string(v.Code)
	}
}
