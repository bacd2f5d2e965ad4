package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/export"
)

var errUnknownFormat = errors.New("format must be csv, tsv or summary")

type options struct {
	input       string
	seed        int64
	format      string
	step        int
	groups      string
	fillerCap   int
	libraryHour int
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "input", "-", "YAML dataset path, - for stdin")
	flag.Int64Var(&opts.seed, "seed", 1, "shuffle seed")
	flag.StringVar(&opts.format, "format", "csv", "output format: csv, tsv or summary")
	flag.IntVar(&opts.step, "section-step", 2, "schedule every n-th semester")
	flag.StringVar(&opts.groups, "section-groups", "A,B", "comma separated section groups")
	flag.IntVar(&opts.fillerCap, "filler-cap", scheduler.DefaultFillerCap, "weekly cap per subject in the filler pass")
	flag.IntVar(&opts.libraryHour, "library-min-hour", scheduler.DefaultLibraryMinHour, "earliest library hour")
	flag.Parse()

	if err := run(opts, os.Stdout); err != nil {
		log.Fatalf("timetable-plan: %v", err)
	}
}

func run(opts options, out io.Writer) error {
	ds, err := loadDataset(opts.input)
	if err != nil {
		return err
	}

	policy := scheduler.SemesterSplitPolicy{Step: opts.step, Groups: splitGroups(opts.groups)}
	result := scheduler.Generate(
		ds.inputs(),
		policy,
		scheduler.NewDepartmentEligibility(ds.Faculty),
		scheduler.Options{FillerCap: opts.fillerCap, LibraryMinHour: scheduler.Hour(opts.libraryHour)},
		scheduler.NewSeededShuffler(opts.seed),
	)

	switch opts.format {
	case "summary":
		return writeSummary(out, result)
	case "csv", "tsv":
		exporter := export.NewCSVExporter()
		if opts.format == "tsv" {
			exporter = export.NewTSVExporter()
		}
		body, err := exporter.Render(service.BuildTimetableDataset(ds.label(result.Entries)))
		if err != nil {
			return err
		}
		_, err = out.Write(body)
		return err
	default:
		return errUnknownFormat
	}
}

func writeSummary(out io.Writer, result *scheduler.Result) error {
	report := result.Report()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "sections\t%d\n", report.Sections)
	fmt.Fprintf(w, "entries\t%d\n", report.EntriesCreated)
	fmt.Fprintf(w, "library hours\t%d\n", report.LibraryHours)
	fmt.Fprintf(w, "subject sessions\t%d\n", report.SubjectSessions)
	fmt.Fprintf(w, "unplaced sessions\t%d\n", report.UnplacedSessions)
	if shortfalls := result.Shortfalls(); len(shortfalls) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "SECTION\tSUBJECT\tPRIORITY\tREQUESTED\tPLACED")
		for _, s := range shortfalls {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", s.Section, s.SubjectCode, s.Priority, s.Requested, s.Placed())
		}
	}
	return w.Flush()
}

func splitGroups(raw string) []string {
	var groups []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			groups = append(groups, part)
		}
	}
	return groups
}
